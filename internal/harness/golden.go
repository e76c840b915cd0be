package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/typekit/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	IDPrefix     string       `json:"id_prefix,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// Empty attributes are left out so each event kind carries only its own keys.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"kind": event.Kind,
			"step": event.Step,
		}
		strs := map[string]string{
			"action":   event.Action,
			"type":     event.Type,
			"base":     event.Base,
			"alias":    event.Alias,
			"instance": event.Instance,
			"hook":     event.Hook,
			"code":     event.Code,
		}
		for k, v := range strs {
			if v != "" {
				eventMap[k] = v
			}
		}
		if event.Kind == EventHook {
			eventMap["ordinal"] = event.Ordinal
		}
		if event.Seq != 0 {
			eventMap["seq"] = event.Seq
		}
		if len(event.Options) > 0 {
			eventMap["options"] = event.Options
		}
		if len(event.Fields) > 0 {
			eventMap["fields"] = event.Fields
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.IDPrefix != "" {
		result["id_prefix"] = s.IDPrefix
	}
	return result
}

// Snapshot renders a scenario's trace as canonical JSON, the exact bytes
// stored in golden files.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		IDPrefix:     scenario.IDPrefix,
		Trace:        result.Trace,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can inspect assertion failures as well.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	traceJSON, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}

// AssertGolden compares an already computed result's trace against
// testdata/golden/{scenarioName}.golden.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	traceJSON, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
