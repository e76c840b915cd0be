package harness

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// SuiteOptions controls a directory run.
type SuiteOptions struct {
	// Filter is a glob matched against scenario file names without extension.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool

	// Logger receives engine and harness logs. nil discards.
	Logger *slog.Logger
}

// SuiteResult summarizes a directory run.
type SuiteResult struct {
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Scenarios []ScenarioOutcome `json:"scenarios"`
}

// ScenarioOutcome is the verdict for one scenario file.
type ScenarioOutcome struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	Pass          bool     `json:"pass"`
	GoldenUpdated bool     `json:"golden_updated,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// FindScenarios walks dir and returns every .yaml/.yml file whose base
// name matches filter (all files when filter is empty), in lexical order.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// GoldenPath returns where the golden trace for a scenario file lives:
// a golden/ directory next to it, named after the file.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// RunSuite runs every scenario under dir. A scenario passes when its steps
// and assertions pass and, if a golden file exists, its trace matches.
func RunSuite(dir string, opts SuiteOptions) (*SuiteResult, error) {
	files, err := FindScenarios(dir, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find scenarios: %w", err)
	}

	result := &SuiteResult{
		Total:     len(files),
		Scenarios: make([]ScenarioOutcome, 0, len(files)),
	}
	for _, file := range files {
		outcome := RunScenarioFile(file, opts)
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, outcome)
	}
	return result, nil
}

// RunScenarioFile loads, runs and golden-checks a single scenario file.
func RunScenarioFile(path string, opts SuiteOptions) ScenarioOutcome {
	outcome := ScenarioOutcome{Name: filepath.Base(path), Path: path}
	fail := func(format string, args ...any) ScenarioOutcome {
		outcome.Pass = false
		outcome.Errors = append(outcome.Errors, fmt.Sprintf(format, args...))
		return outcome
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	outcome.Name = scenario.Name

	result, err := RunWithLogger(scenario, opts.Logger)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	outcome.Pass = result.Pass
	outcome.Errors = append(outcome.Errors, result.Errors...)

	current, err := Snapshot(scenario, result)
	if err != nil {
		return fail("failed to snapshot trace: %v", err)
	}

	goldenPath := GoldenPath(path)
	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, current, 0o644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
		outcome.GoldenUpdated = true
		return outcome
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return outcome
	}
	if err != nil {
		return fail("failed to read golden file: %v", err)
	}
	if !bytes.Equal(golden, current) {
		return fail("trace does not match golden file %s (run with --update to regenerate)", goldenPath)
	}
	return outcome
}
