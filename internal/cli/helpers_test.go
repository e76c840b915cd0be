package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const shapesCatalog = `
package shapes

mixin: Evented: {
	fields: {listeners: 0}
	methods: {fire: "noop"}
}

type: Path: {
	includes: ["Evented"]
	statics: {KIND: "path"}
	options: {stroke: true, weight: 3}
	methods: {initialize: "assign_options", append: "append"}
	hooks: [{method: "append", args: ["trace", "path"]}]
}

type: Circle: {
	extends: "Path"
	options: {radius: 10}
	methods: {copy_option: "copy_option"}
	hooks: [{method: "copy_option", args: ["radius", "r"]}]
}

type: Broken: {
	extends: "Path"
	methods: {explode: "fail"}
	hooks: [{method: "explode", args: ["boom"]}]
}
`

// writeCatalog writes src as catalog.cue in a fresh temp dir.
func writeCatalog(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(src), 0o644))
	return dir
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
