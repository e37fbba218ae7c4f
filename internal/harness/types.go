package harness

// StepRecord is the outcome of one scenario step.
type StepRecord struct {
	Index int    `json:"index"`
	Op    string `json:"op"`
	Line  string `json:"line,omitempty"`
	Value string `json:"value,omitempty"`

	// Code is the engine error code when the step failed.
	Code string `json:"code,omitempty"`

	// Message is the error message when the step failed.
	Message string `json:"message,omitempty"`
}

// Failed reports whether the step was rejected.
func (r StepRecord) Failed() bool {
	return r.Code != ""
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold and every failed step was expected.
	Pass bool `json:"pass"`

	// Steps records each step in order.
	Steps []StepRecord `json:"steps"`

	// Lines is the final forest in sequence order, as canonical snapshots
	// with an added "ref" key. Lines are read back from the store, so they
	// carry durable ids.
	Lines []map[string]any `json:"lines"`

	// SnapshotHash is the hash of the final lines.
	SnapshotHash string `json:"snapshot_hash"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepRecord{},
		Lines:  []map[string]any{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep records a step outcome.
func (r *Result) AddStep(rec StepRecord) {
	r.Steps = append(r.Steps, rec)
}
