package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/contractcfg/internal/engine"
	"github.com/roach88/contractcfg/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Order    []string // Line refs in sequence order, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Order) > 0 {
		fmt.Fprintf(&buf, "\nLines:\n")
		for i, ref := range e.Order {
			fmt.Fprintf(&buf, "  [%d] %s\n", i, ref)
		}
	}

	return buf.String()
}

// AssertionContext provides the final forest for evaluating assertions.
type AssertionContext struct {
	Engine *engine.Engine
	Refs   map[string]ir.LineID
}

// order returns the refs of all lines in sequence order.
func (a *AssertionContext) order() []string {
	index := make(map[ir.LineID]string, len(a.Refs))
	for ref, id := range a.Refs {
		index[id] = ref
	}
	var out []string
	for _, l := range a.Engine.Lines() {
		ref, ok := index[l.ID]
		if !ok {
			ref = string(l.ID)
		}
		out = append(out, ref)
	}
	return out
}

func (a *AssertionContext) line(ref string) (ir.Line, bool) {
	id, ok := a.Refs[ref]
	if !ok {
		return ir.Line{}, false
	}
	return a.Engine.Line(id)
}

// assertField checks a single field of a line.
func assertField(actx *AssertionContext, assertion Assertion) error {
	l, ok := actx.line(assertion.Line)
	if !ok {
		return &AssertionError{
			Type:     AssertField,
			Expected: fmt.Sprintf("line %s to exist", assertion.Line),
			Actual:   "line not found",
			Order:    actx.order(),
		}
	}

	actual, ok := fieldValue(actx, l, assertion.Field)
	if !ok {
		return &AssertionError{
			Type:     AssertField,
			Expected: fmt.Sprintf("field %q on line %s", assertion.Field, assertion.Line),
			Actual:   fmt.Sprintf("no such field on a %s line", l.Kind),
		}
	}

	if !fieldEqual(*assertion.Equals, actual) {
		return &AssertionError{
			Type:     AssertField,
			Expected: fmt.Sprintf("%s.%s = %s", assertion.Line, assertion.Field, *assertion.Equals),
			Actual:   fmt.Sprintf("%s.%s = %s", assertion.Line, assertion.Field, actual),
		}
	}
	return nil
}

// fieldValue renders a line field as a string. Field names follow the
// snapshot keys, plus "parent" (the parent's ref), "uom",
// "product_option_id" and "parent_option_id".
func fieldValue(actx *AssertionContext, l ir.Line, field string) (string, bool) {
	switch field {
	case "parent":
		parent := l.ParentID()
		if parent.IsZero() {
			return "", l.Config != nil
		}
		for ref, id := range actx.Refs {
			if id == parent {
				return ref, true
			}
		}
		return string(parent), true
	case "uom":
		return l.UoM, true
	case "product_option_id":
		if l.Config == nil {
			return "", false
		}
		return l.Config.ProductOptionID, true
	case "parent_option_id":
		if l.Config == nil {
			return "", false
		}
		return string(l.Config.ParentOptionID), true
	}

	v, ok := ir.LineSnapshot(l)[field]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

// fieldEqual compares numerically when both sides are decimals.
func fieldEqual(expected, actual string) bool {
	e, errE := decimal.NewFromString(expected)
	a, errA := decimal.NewFromString(actual)
	if errE == nil && errA == nil {
		return e.Equal(a)
	}
	return expected == actual
}

// assertOrder checks that the lines, in sequence order, are exactly the
// listed refs.
func assertOrder(actx *AssertionContext, assertion Assertion) error {
	actual := actx.order()
	if !slices.Equal(actual, assertion.Lines) {
		return &AssertionError{
			Type:     AssertOrder,
			Expected: fmt.Sprintf("%v", assertion.Lines),
			Actual:   fmt.Sprintf("%v", actual),
		}
	}
	return nil
}

// assertCount checks the number of lines in the forest, or the number of
// direct options of a line.
func assertCount(actx *AssertionContext, assertion Assertion) error {
	count := actx.Engine.Forest().Len()
	what := "lines"
	if assertion.Line != "" {
		id, ok := actx.Refs[assertion.Line]
		if !ok || !actx.Engine.Forest().Has(id) {
			return &AssertionError{
				Type:     AssertCount,
				Expected: fmt.Sprintf("line %s to exist", assertion.Line),
				Actual:   "line not found",
				Order:    actx.order(),
			}
		}
		count = len(actx.Engine.Forest().ChildIDs(id))
		what = "options of " + assertion.Line
	}

	if count != *assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d %s", *assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Order:    actx.order(),
		}
	}
	return nil
}

// assertError checks that a step was rejected with the given code.
func assertError(steps []StepRecord, assertion Assertion) error {
	idx := *assertion.Step
	if idx < 0 || idx >= len(steps) {
		return fmt.Errorf("error assertion references step %d of %d", idx, len(steps))
	}
	rec := steps[idx]
	if rec.Code != assertion.Code {
		actual := "step succeeded"
		if rec.Failed() {
			actual = fmt.Sprintf("%s (%s)", rec.Code, rec.Message)
		}
		return &AssertionError{
			Type:     AssertError,
			Expected: fmt.Sprintf("step %d (%s) fails with %s", idx, rec.Op, assertion.Code),
			Actual:   actual,
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertField:
			err = assertField(actx, assertion)
		case AssertOrder:
			err = assertOrder(actx, assertion)
		case AssertCount:
			err = assertCount(actx, assertion)
		case AssertError:
			err = assertError(result.Steps, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}
