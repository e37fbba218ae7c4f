package harness

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/contractcfg/internal/ir"
)

// Snapshot captures the observable outcome of a scenario execution.
// It is serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string           `json:"scenario_name"`
	Steps        []StepRecord     `json:"steps"`
	Lines        []map[string]any `json:"lines"`
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Steps))
	for i, rec := range s.Steps {
		m := map[string]any{
			"index": rec.Index,
			"op":    rec.Op,
		}
		if rec.Line != "" {
			m["line"] = rec.Line
		}
		if rec.Value != "" {
			m["value"] = rec.Value
		}
		if rec.Code != "" {
			m["code"] = rec.Code
		}
		steps[i] = m
	}

	lines := make([]any, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = l
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"steps":         steps,
		"lines":         lines,
	}
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot be executed. A snapshot mismatch
// fails the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Steps:        result.Steps,
		Lines:        result.Lines,
	}
	data, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// DiffSnapshots compares two marshaled snapshots and describes how got
// differs from want, one entry per line or step. Lines are matched by ref,
// or by id when a line has no ref. An empty result means the snapshots
// hold the same data.
func DiffSnapshots(want, got []byte) ([]string, error) {
	var w, g struct {
		Steps []map[string]any `json:"steps"`
		Lines []map[string]any `json:"lines"`
	}
	if err := json.Unmarshal(want, &w); err != nil {
		return nil, fmt.Errorf("decode golden snapshot: %w", err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	var diffs []string
	for i := 0; i < max(len(w.Steps), len(g.Steps)); i++ {
		switch {
		case i >= len(g.Steps):
			diffs = append(diffs, fmt.Sprintf("step %d: missing", i))
		case i >= len(w.Steps):
			diffs = append(diffs, fmt.Sprintf("step %d: unexpected", i))
		default:
			diffs = append(diffs, diffFields(fmt.Sprintf("step %d", i), w.Steps[i], g.Steps[i])...)
		}
	}

	wantLines := indexLines(w.Lines)
	gotLines := indexLines(g.Lines)
	for _, key := range lineKeys(w.Lines) {
		gl, ok := gotLines[key]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("line %s: missing", key))
			continue
		}
		diffs = append(diffs, diffFields("line "+key, wantLines[key], gl)...)
	}
	for _, key := range lineKeys(g.Lines) {
		if _, ok := wantLines[key]; !ok {
			diffs = append(diffs, fmt.Sprintf("line %s: unexpected", key))
		}
	}
	return diffs, nil
}

func lineKey(l map[string]any) string {
	if ref, ok := l["ref"].(string); ok && ref != "" {
		return ref
	}
	return fmt.Sprint(l["id"])
}

func lineKeys(lines []map[string]any) []string {
	keys := make([]string, len(lines))
	for i, l := range lines {
		keys[i] = lineKey(l)
	}
	return keys
}

func indexLines(lines []map[string]any) map[string]map[string]any {
	idx := make(map[string]map[string]any, len(lines))
	for _, l := range lines {
		idx[lineKey(l)] = l
	}
	return idx
}

// diffFields lists the keys whose values differ, in key order.
func diffFields(prefix string, want, got map[string]any) []string {
	keys := make(map[string]bool, len(want)+len(got))
	for k := range want {
		keys[k] = true
	}
	for k := range got {
		keys[k] = true
	}

	var diffs []string
	for _, k := range slices.Sorted(maps.Keys(keys)) {
		wv, wok := want[k]
		gv, gok := got[k]
		if wok == gok && reflect.DeepEqual(wv, gv) {
			continue
		}
		diffs = append(diffs, fmt.Sprintf("%s: %s = %s, want %s", prefix, k, showValue(gv, gok), showValue(wv, wok)))
	}
	return diffs
}

func showValue(v any, ok bool) string {
	if !ok {
		return "<unset>"
	}
	return fmt.Sprintf("%v", v)
}
