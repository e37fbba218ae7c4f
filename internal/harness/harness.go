package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/contractcfg/internal/catalog"
	"github.com/roach88/contractcfg/internal/engine"
	"github.com/roach88/contractcfg/internal/forest"
	"github.com/roach88/contractcfg/internal/ir"
	"github.com/roach88/contractcfg/internal/store"
	"github.com/roach88/contractcfg/internal/testutil"
)

// CodeUnknown is recorded for step failures that carry no engine code,
// such as an unknown line ref.
const CodeUnknown = "ERROR"

// Harness is the test execution engine.
// It runs one scenario against a fresh engine and an in-memory store.
type Harness struct {
	engine *engine.Engine
	store  *store.Store
	refs   map[string]ir.LineID
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger routes engine and harness logs to l. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Compile the catalog, if any, and build an engine over an empty forest
//  2. Create the line tree in one batch and bind refs to the new lines
//  3. Apply each step, recording rejected steps with their error code
//  4. Promote pending ids with a sequential generator, save the forest to
//     an in-memory store and read it back
//  5. Evaluate assertions
//
// Run returns an error only when the scenario itself cannot be executed.
// Failed assertions and unexpected step failures are reported in the
// result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	ctx := context.Background()

	h := &Harness{
		refs:   make(map[string]ir.LineID),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}

	contract, err := scenario.Contract.Contract()
	if err != nil {
		return nil, err
	}

	engOpts := []engine.Option{engine.WithLogger(h.logger)}
	cat, err := loadCatalog(scenario)
	if err != nil {
		return nil, err
	}
	if cat != nil {
		engOpts = append(engOpts, engine.WithCatalog(cat), engine.WithPricer(cat))
	}
	if scenario.MaxDepth > 0 {
		engOpts = append(engOpts, engine.WithMaxDepth(scenario.MaxDepth))
	}
	if scenario.MaxSteps > 0 {
		engOpts = append(engOpts, engine.WithMaxSteps(scenario.MaxSteps))
	}

	h.engine, err = engine.New(forest.New(contract), engOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	h.store, err = store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer h.store.Close()

	specs := make([]ir.LineSpec, len(scenario.Lines))
	for i, n := range scenario.Lines {
		specs[i] = n.Spec()
	}
	ids, err := h.engine.CreateLineTree(specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create line tree: %w", err)
	}
	if err := h.bind(scenario.Lines, ids); err != nil {
		return nil, err
	}
	h.nameLines()

	result := NewResult()
	for i, step := range scenario.Steps {
		rec := StepRecord{Index: i, Op: step.Op, Line: step.Line, Value: step.Value}
		if err := h.apply(step); err != nil {
			rec.Code = errorCode(err)
			rec.Message = err.Error()
			h.logger.Info("step rejected", "step", i, "op", step.Op, "code", rec.Code)
		} else {
			h.nameLines()
			h.logger.Info("step applied", "step", i, "op", step.Op, "line", step.Line)
		}
		result.AddStep(rec)
	}

	if err := h.persist(ctx, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Engine: h.engine, Refs: h.refs}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	expected := make(map[int]bool)
	for _, a := range scenario.Assertions {
		if a.Type == AssertError && a.Step != nil {
			expected[*a.Step] = true
		}
	}
	for _, rec := range result.Steps {
		if rec.Failed() && !expected[rec.Index] {
			result.AddError(fmt.Sprintf("step %d (%s) failed unexpectedly: %s", rec.Index, rec.Op, rec.Message))
		}
	}

	return result, nil
}

// loadCatalog compiles the scenario's catalog. A scenario without catalog
// runs without catalog and pricer.
func loadCatalog(s *Scenario) (*catalog.Catalog, error) {
	switch {
	case s.Catalog != "":
		c, err := catalog.Compile(s.Name+".cue", s.Catalog)
		if err != nil {
			return nil, fmt.Errorf("failed to compile catalog: %w", err)
		}
		return c, nil
	case s.CatalogDir != "":
		c, err := catalog.Load(s.CatalogDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		return c, nil
	}
	return nil, nil
}

// apply runs one step against the engine.
func (h *Harness) apply(step Step) error {
	if step.Op == OpResequence {
		return h.engine.SyncSequence()
	}

	id, err := h.lookup(step.Line)
	if err != nil {
		return err
	}
	value := nullDecimal(step.Value).Decimal

	switch step.Op {
	case OpSetQuantity:
		return h.engine.SetQuantity(id, value)
	case OpSetOptionUnitQty:
		return h.engine.SetOptionUnitQty(id, value)
	case OpSetPriceUnit:
		return h.engine.SetPriceUnit(id, value)
	case OpSetPriceSubtotal:
		return h.engine.SetPriceSubtotal(id, value)
	case OpSetQtyType:
		return h.engine.SetOptionQtyType(id, ir.QtyType(step.Value))
	case OpSetProduct:
		return h.engine.SetProduct(id, step.Value, step.AddDefaults)
	case OpSetParent:
		var parent ir.LineID
		if step.Parent != "" {
			if parent, err = h.lookup(step.Parent); err != nil {
				return err
			}
		}
		return h.engine.SetParentOption(id, parent)
	case OpRemove:
		return h.engine.RemoveLine(id)
	case OpAddOptions:
		return h.addOptions(id, step.Options)
	}
	return fmt.Errorf("unknown op %q", step.Op)
}

// addOptions appends options to a line, keeping the existing ones.
func (h *Harness) addOptions(parent ir.LineID, nodes []LineNode) error {
	existing := h.engine.Forest().ChildIDs(parent)
	specs := make([]ir.LineSpec, 0, len(existing)+len(nodes))
	for _, id := range existing {
		specs = append(specs, ir.LineSpec{ID: id})
	}
	for _, n := range nodes {
		specs = append(specs, n.Spec())
	}

	ids, err := h.engine.SetOptions(parent, specs)
	if err != nil {
		return err
	}
	return h.bind(nodes, ids[len(existing):])
}

// bind maps node refs to the ids created for them. Inline options are
// matched to the children of their line in creation order.
func (h *Harness) bind(nodes []LineNode, ids []ir.LineID) error {
	if len(nodes) != len(ids) {
		return fmt.Errorf("created %d lines for %d nodes", len(ids), len(nodes))
	}
	for i, n := range nodes {
		if n.Ref != "" {
			h.refs[n.Ref] = ids[i]
		}
		if len(n.Options) == 0 {
			continue
		}
		if err := h.bind(n.Options, h.engine.Forest().ChildIDs(ids[i])); err != nil {
			return err
		}
	}
	return nil
}

// nameLines gives every unnamed live line a ref derived from its parent's
// ref and its product, e.g. "desk/drawer". Collisions get a "#2", "#3"
// suffix.
func (h *Harness) nameLines() {
	f := h.engine.Forest()
	named := h.refIndex()

	var walk func(id ir.LineID, parentRef string)
	walk = func(id ir.LineID, parentRef string) {
		ref, ok := named[id]
		if !ok {
			base := f.Get(id).ProductID
			if base == "" {
				base = "line"
			}
			if parentRef != "" {
				base = parentRef + "/" + base
			}
			ref = base
			for n := 2; h.taken(ref); n++ {
				ref = fmt.Sprintf("%s#%d", base, n)
			}
			h.refs[ref] = id
			named[id] = ref
		}
		for _, child := range f.ChildIDs(id) {
			walk(child, ref)
		}
	}
	for _, root := range f.Roots() {
		walk(root.ID, "")
	}
}

func (h *Harness) taken(ref string) bool {
	_, ok := h.refs[ref]
	return ok
}

// refIndex maps live line ids back to their refs.
func (h *Harness) refIndex() map[ir.LineID]string {
	f := h.engine.Forest()
	out := make(map[ir.LineID]string, len(h.refs))
	for ref, id := range h.refs {
		if f.Has(id) {
			out[id] = ref
		}
	}
	return out
}

func (h *Harness) lookup(ref string) (ir.LineID, error) {
	id, ok := h.refs[ref]
	if !ok {
		return "", fmt.Errorf("unknown line ref %q", ref)
	}
	return id, nil
}

// persist promotes pending ids, saves the forest and records the lines as
// read back from the store.
func (h *Harness) persist(ctx context.Context, result *Result) error {
	mapping := h.engine.Promote(testutil.NewSequentialGenerator(""))
	for ref, id := range h.refs {
		if to, ok := mapping[id]; ok {
			h.refs[ref] = to
		}
	}

	c := h.engine.Contract()
	if err := h.store.SaveContract(ctx, c, h.engine.Lines()); err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	_, lines, err := h.store.LoadContract(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to reload contract: %w", err)
	}

	hash, err := ir.SnapshotHash(lines)
	if err != nil {
		return err
	}
	result.SnapshotHash = hash

	refs := h.refIndex()
	for _, l := range lines {
		snap := ir.LineSnapshot(l)
		snap["ref"] = refs[l.ID]
		result.Lines = append(result.Lines, snap)
	}
	return nil
}

// errorCode extracts the engine error code of a rejected step.
func errorCode(err error) string {
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	if engine.IsQuotaError(err) {
		return string(engine.ErrCodeQuotaExceeded)
	}
	return CodeUnknown
}
