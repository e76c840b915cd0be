package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/typekit/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testCatalog is a two-type catalog whose hooks record their order in the
// "trace" field.
func testCatalog() ir.Catalog {
	return ir.Catalog{
		Types: []ir.TypeSpec{
			{
				Name:    "Path",
				Options: ir.IRObject{"weight": ir.IRInt(3)},
				Methods: map[string]string{"initialize": "assign_options", "append": "append"},
				Hooks: []ir.HookSpec{
					{Method: "append", Args: ir.IRArray{ir.IRString("trace"), ir.IRString("H1")}},
				},
			},
			{
				Name:    "Circle",
				Extends: "Path",
				Options: ir.IRObject{"radius": ir.IRInt(10)},
				Hooks: []ir.HookSpec{
					{Method: "append", Args: ir.IRArray{ir.IRString("trace"), ir.IRString("H2")}},
				},
			},
		},
	}
}
