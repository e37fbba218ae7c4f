package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/contractcfg/internal/ir"
)

// Scenario defines a line-tree test scenario.
// A scenario builds a contract forest, applies a list of edits and asserts
// on the resulting lines.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Contract is the header shared by all lines.
	Contract ContractDef `yaml:"contract"`

	// Catalog is inline CUE catalog source.
	Catalog string `yaml:"catalog,omitempty"`

	// CatalogDir is a CUE catalog directory, relative to the scenario file.
	// Mutually exclusive with Catalog.
	CatalogDir string `yaml:"catalog_dir,omitempty"`

	// MaxDepth overrides the engine's option depth limit when positive.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// MaxSteps overrides the engine's recompute step budget when positive.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Lines is the initial line tree, created in one batch.
	Lines []LineNode `yaml:"lines"`

	// Steps are applied in order after the tree is created. A failing step
	// is recorded and the run continues with the next one.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the final forest and step outcomes.
	Assertions []Assertion `yaml:"assertions"`
}

// ContractDef is the YAML form of a contract header.
type ContractDef struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name,omitempty"`
	PartnerID   string `yaml:"partner_id,omitempty"`
	PricelistID string `yaml:"pricelist_id,omitempty"`
	Date        string `yaml:"date,omitempty"` // YYYY-MM-DD
}

// LineNode is the YAML form of a line and its inline options.
//
// Ref names the line for steps and assertions. Lines without a ref are
// named "<parent ref>/<product>" (or just "<product>" for roots).
type LineNode struct {
	Ref           string     `yaml:"ref,omitempty"`
	Product       string     `yaml:"product,omitempty"`
	Name          string     `yaml:"name,omitempty"`
	UoM           string     `yaml:"uom,omitempty"`
	Sequence      *int       `yaml:"sequence,omitempty"`
	Quantity      string     `yaml:"quantity,omitempty"`
	PriceUnit     string     `yaml:"price_unit,omitempty"`
	PriceSubtotal string     `yaml:"price_subtotal,omitempty"`
	OptionUnitQty string     `yaml:"option_unit_qty,omitempty"`
	QtyType       string     `yaml:"qty_type,omitempty"`
	Plain         bool       `yaml:"plain,omitempty"`
	Options       []LineNode `yaml:"options,omitempty"`
}

// Step is a single edit applied to the forest.
type Step struct {
	// Op selects the edit; see the Op constants.
	Op string `yaml:"op"`

	// Line is the ref of the edited line.
	Line string `yaml:"line,omitempty"`

	// Value carries the new field value: a decimal for amounts and
	// quantities, a mode for set_qty_type, a product id for set_product.
	Value string `yaml:"value,omitempty"`

	// Parent is the new option parent ref for set_parent. Empty detaches.
	Parent string `yaml:"parent,omitempty"`

	// AddDefaults makes set_product create the product's default options.
	AddDefaults bool `yaml:"add_defaults,omitempty"`

	// Options are appended to the line's options by add_options.
	Options []LineNode `yaml:"options,omitempty"`
}

// Step operations.
const (
	OpSetQuantity      = "set_quantity"
	OpSetOptionUnitQty = "set_option_unit_qty"
	OpSetQtyType       = "set_qty_type"
	OpSetPriceSubtotal = "set_price_subtotal"
	OpSetPriceUnit     = "set_price_unit"
	OpSetProduct       = "set_product"
	OpSetParent        = "set_parent"
	OpRemove           = "remove"
	OpResequence       = "resequence"
	OpAddOptions       = "add_options"
)

// Assertion validates the final forest or the outcome of a step.
type Assertion struct {
	// Type specifies the assertion type:
	// - "field": line field equals a value
	// - "order": every line, in sequence order, matches a ref list
	// - "count": number of lines (or of a line's direct options)
	// - "error": a step failed with a given code
	Type string `yaml:"type"`

	// Line is the line ref (field, and optionally count).
	Line string `yaml:"line,omitempty"`

	// Field is the field name (field).
	Field string `yaml:"field,omitempty"`

	// Equals is the expected value (field). Decimal values compare
	// numerically, so "6" equals "6.0000".
	Equals *string `yaml:"equals,omitempty"`

	// Lines is the expected ref order (order).
	Lines []string `yaml:"lines,omitempty"`

	// Count is the expected number of lines (count).
	Count *int `yaml:"count,omitempty"`

	// Step is the index of the step (error).
	Step *int `yaml:"step,omitempty"`

	// Code is the expected engine error code (error).
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertField = "field"
	AssertOrder = "order"
	AssertCount = "count"
	AssertError = "error"
)

// dateLayout is the scenario format of contract dates.
const dateLayout = "2006-01-02"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative catalog_dir is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving catalog_dir relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.CatalogDir != "" && !filepath.IsAbs(scenario.CatalogDir) && basePath != "" {
		scenario.CatalogDir = filepath.Join(basePath, scenario.CatalogDir)
	}
	if scenario.CatalogDir != "" {
		if _, err := os.Stat(scenario.CatalogDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: catalog directory not found: %s", scenario.CatalogDir)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Contract converts the header definition.
func (d ContractDef) Contract() (ir.Contract, error) {
	c := ir.Contract{
		ID:          d.ID,
		Name:        d.Name,
		PartnerID:   d.PartnerID,
		PricelistID: d.PricelistID,
	}
	if d.Date != "" {
		t, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			return ir.Contract{}, fmt.Errorf("contract date: %w", err)
		}
		c.Date = t
	}
	return c, nil
}

// Spec converts a node and its options to an engine line spec.
func (n LineNode) Spec() ir.LineSpec {
	s := ir.LineSpec{
		Name:          n.Name,
		ProductID:     n.Product,
		UoM:           n.UoM,
		Sequence:      n.Sequence,
		Quantity:      nullDecimal(n.Quantity),
		PriceUnit:     nullDecimal(n.PriceUnit),
		PriceSubtotal: nullDecimal(n.PriceSubtotal),
		OptionUnitQty: nullDecimal(n.OptionUnitQty),
		OptionQtyType: ir.QtyType(n.QtyType),
		Plain:         n.Plain,
	}
	for _, o := range n.Options {
		s.Options = append(s.Options, o.Spec())
	}
	return s
}

// nullDecimal parses an optional decimal. Inputs are checked by
// validateScenario, so malformed values cannot reach it.
func nullDecimal(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Contract.ID == "" {
		return fmt.Errorf("contract.id is required")
	}
	if _, err := s.Contract.Contract(); err != nil {
		return err
	}
	if s.Catalog != "" && s.CatalogDir != "" {
		return fmt.Errorf("catalog and catalog_dir are mutually exclusive")
	}
	if len(s.Lines) == 0 {
		return fmt.Errorf("lines list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	refs := make(map[string]bool)
	if err := validateNodes("lines", s.Lines, refs); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step, refs); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}

	return nil
}

// ValidateLines checks a line tree outside of a scenario, e.g. one read
// by the CLI.
func ValidateLines(nodes []LineNode) error {
	if len(nodes) == 0 {
		return fmt.Errorf("lines list is required and must be non-empty")
	}
	return validateNodes("lines", nodes, make(map[string]bool))
}

func validateNodes(path string, nodes []LineNode, refs map[string]bool) error {
	for i, n := range nodes {
		at := fmt.Sprintf("%s[%d]", path, i)
		if n.Ref != "" {
			if refs[n.Ref] {
				return fmt.Errorf("%s: duplicate ref %q", at, n.Ref)
			}
			refs[n.Ref] = true
		}
		for field, v := range map[string]string{
			"quantity":        n.Quantity,
			"price_unit":      n.PriceUnit,
			"price_subtotal":  n.PriceSubtotal,
			"option_unit_qty": n.OptionUnitQty,
		} {
			if err := checkDecimal(v); err != nil {
				return fmt.Errorf("%s.%s: %w", at, field, err)
			}
		}
		if n.QtyType != "" && !ir.QtyType(n.QtyType).Valid() {
			return fmt.Errorf("%s.qty_type: unknown mode %q", at, n.QtyType)
		}
		if n.Plain && len(n.Options) > 0 {
			return fmt.Errorf("%s: plain lines cannot have options", at)
		}
		if err := validateNodes(at+".options", n.Options, refs); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, refs map[string]bool) error {
	at := fmt.Sprintf("steps[%d]", i)
	switch step.Op {
	case OpSetQuantity, OpSetOptionUnitQty, OpSetPriceSubtotal, OpSetPriceUnit:
		if step.Value == "" {
			return fmt.Errorf("%s: value is required for %s", at, step.Op)
		}
		if err := checkDecimal(step.Value); err != nil {
			return fmt.Errorf("%s.value: %w", at, err)
		}
	case OpSetQtyType:
		// Unknown modes are allowed: the engine leaves the quantity alone.
		if step.Value == "" {
			return fmt.Errorf("%s: value is required for %s", at, step.Op)
		}
	case OpSetProduct:
		if step.Value == "" {
			return fmt.Errorf("%s: value (product id) is required for %s", at, step.Op)
		}
	case OpAddOptions:
		if len(step.Options) == 0 {
			return fmt.Errorf("%s: options list is required for %s", at, step.Op)
		}
		if err := validateNodes(at+".options", step.Options, refs); err != nil {
			return err
		}
	case OpSetParent, OpRemove:
	case OpResequence:
		return nil
	case "":
		return fmt.Errorf("%s: op is required", at)
	default:
		return fmt.Errorf("%s: unknown op %q", at, step.Op)
	}
	if step.Line == "" {
		return fmt.Errorf("%s: line is required for %s", at, step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, steps int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertField:
		if a.Line == "" || a.Field == "" {
			return fmt.Errorf("assertions[%d]: line and field are required for field", index)
		}
		if a.Equals == nil {
			return fmt.Errorf("assertions[%d]: equals is required for field", index)
		}
	case AssertOrder:
		if len(a.Lines) == 0 {
			return fmt.Errorf("assertions[%d]: lines list is required for order", index)
		}
	case AssertCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for count", index)
		}
	case AssertError:
		if a.Step == nil || *a.Step < 0 || *a.Step >= steps {
			return fmt.Errorf("assertions[%d]: step must index one of the %d steps", index, steps)
		}
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func checkDecimal(s string) error {
	if s == "" {
		return nil
	}
	if _, err := decimal.NewFromString(s); err != nil {
		return fmt.Errorf("not a decimal: %q", s)
	}
	return nil
}
