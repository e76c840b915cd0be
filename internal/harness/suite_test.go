package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenario copies a testdata scenario (and the CUE catalog next to it)
// into dir so golden files can be written without touching testdata.
func copyScenario(t *testing.T, dir, name string) string {
	t.Helper()
	for _, f := range []string{name, "shapes.cue"} {
		data, err := os.ReadFile(filepath.Join("testdata", "scenarios", f))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), data, 0o644))
	}
	return filepath.Join(dir, name)
}

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{
		"catalog_shapes.yaml",
		"hooks_compose.yaml",
		"mixins_and_errors.yaml",
		"options_inherit.yaml",
		"statics_first_writer.yaml",
	}, names)

	filtered, err := FindScenarios("testdata/scenarios", "*_inherit")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "options_inherit.yaml", filepath.Base(filtered[0]))

	_, err = FindScenarios("testdata/scenarios", "[")
	assert.Error(t, err)
}

func TestGoldenPath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "golden", "x.golden"), GoldenPath(filepath.Join("a", "b", "x.yaml")))
}

func TestRunSuite_TestdataMatchesGolden(t *testing.T) {
	result, err := RunSuite("testdata/scenarios", SuiteOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 5, result.Passed)
	assert.Zero(t, result.Failed)
	for _, s := range result.Scenarios {
		assert.True(t, s.Pass, "%s: %v", s.Name, s.Errors)
		assert.False(t, s.GoldenUpdated)
	}
}

func TestRunScenarioFile_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	path := copyScenario(t, dir, "catalog_shapes.yaml")

	updated := RunScenarioFile(path, SuiteOptions{Update: true})
	require.True(t, updated.Pass, "errors: %v", updated.Errors)
	assert.True(t, updated.GoldenUpdated)

	written, err := os.ReadFile(GoldenPath(path))
	require.NoError(t, err)
	expected, err := os.ReadFile("testdata/scenarios/golden/catalog_shapes.golden")
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))

	compared := RunScenarioFile(path, SuiteOptions{})
	assert.True(t, compared.Pass, "errors: %v", compared.Errors)
}

func TestRunScenarioFile_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	path := copyScenario(t, dir, "hooks_compose.yaml")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(GoldenPath(path), []byte(`{"stale":true}`), 0o644))

	outcome := RunScenarioFile(path, SuiteOptions{})
	assert.False(t, outcome.Pass)
	assert.Equal(t, "hooks_compose", outcome.Name)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "does not match golden file")
}

func TestRunScenarioFile_NoGoldenUsesAssertionsOnly(t *testing.T) {
	dir := t.TempDir()
	path := copyScenario(t, dir, "hooks_compose.yaml")

	outcome := RunScenarioFile(path, SuiteOptions{})
	assert.True(t, outcome.Pass, "errors: %v", outcome.Errors)
	_, err := os.Stat(GoldenPath(path))
	assert.True(t, os.IsNotExist(err))
}

func TestRunScenarioFile_LoadError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: [unclosed"), 0o644))

	outcome := RunScenarioFile(path, SuiteOptions{})
	assert.False(t, outcome.Pass)
	assert.Equal(t, "broken.yaml", outcome.Name)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "failed to load scenario")
}

func TestRunSuite_CountsFailures(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "statics_first_writer.yaml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(`
name: failing
description: "asserts a static that was never declared"
steps:
  - derive: {name: Base}
assertions:
  - {type: static_equals, on: Base, key: FOO, value: 1}
`), 0o644))

	result, err := RunSuite(dir, SuiteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, "failing", result.Scenarios[0].Name)
	assert.False(t, result.Scenarios[0].Pass)
}
