package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
)

// InspectResult describes one type as the engine resolved it.
type InspectResult struct {
	Type    string       `json:"type"`
	ID      int          `json:"id"`
	Chain   []string     `json:"chain"`
	Statics ir.IRObject  `json:"statics"`
	Options ir.IRObject  `json:"options"`
	Members []MemberInfo `json:"members"`
	Hooks   []string     `json:"hooks"`
}

// MemberInfo is one resolvable template member.
type MemberInfo struct {
	Name  string     `json:"name"`
	Kind  string     `json:"kind"` // "field" or "method"
	Value ir.IRValue `json:"value,omitempty"`
	Owner string     `json:"owner"` // nearest type on the chain defining it
}

// UnmarshalJSON decodes a member, routing a present value through the IR
// decoder.
func (m *MemberInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string          `json:"name"`
		Kind  string          `json:"kind"`
		Value json.RawMessage `json:"value"`
		Owner string          `json:"owner"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = MemberInfo{Name: raw.Name, Kind: raw.Kind, Owner: raw.Owner}
	if len(raw.Value) > 0 {
		v, err := ir.UnmarshalIRValue(raw.Value)
		if err != nil {
			return fmt.Errorf("member %s: %w", raw.Name, err)
		}
		m.Value = v
	}
	return nil
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <catalog-dir> <type>",
		Short: "Show how a type resolves",
		Long: `Build a catalog and show one type as instances will see it: the
inheritance chain, the static registry, the effective default options,
every template member with the type that supplies it, and the init hooks
in run order.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, dir, typeName string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	reg, _, err := buildCatalog(formatter, opts, dir, cmd)
	if err != nil {
		return err
	}

	t, err := lookupType(reg, typeName)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeUnknownType, err.Error(), nil)
	}

	result := describeType(t)
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputInspectText(formatter, result)
	return nil
}

// buildCatalog loads, validates and builds the catalog in dir, reporting
// failures through formatter. The returned error is already reported.
func buildCatalog(formatter *OutputFormatter, opts *RootOptions, dir string, cmd *cobra.Command, extra ...engine.Option) (*engine.Registry, *ir.Catalog, error) {
	res, valErrs, err := LoadValidCatalog(dir)
	if err != nil {
		return nil, nil, outputLoadError(formatter, err)
	}
	if len(valErrs) > 0 {
		return nil, nil, outputValidationErrors(formatter, valErrs)
	}

	buildOpts := append([]engine.Option{engine.WithLogger(opts.Logger(cmd.ErrOrStderr()))}, extra...)
	reg, err := engine.Build(res.Catalog, engine.Builtins(), buildOpts...)
	if err != nil {
		return nil, nil, formatter.fail(ExitCommandError, ErrCodeBuildFailed, fmt.Sprintf("building catalog: %v", err), nil)
	}
	return reg, res.Catalog, nil
}

// lookupType resolves a type name; the root answers to its display name.
func lookupType(reg *engine.Registry, name string) (*engine.Type, error) {
	if name == engine.RootTypeName {
		return reg.Root(), nil
	}
	if t, ok := reg.Lookup(name); ok {
		return t, nil
	}
	return nil, fmt.Errorf("type %q is not declared", name)
}

func describeType(t *engine.Type) InspectResult {
	result := InspectResult{
		Type:    t.String(),
		ID:      int(t.ID()),
		Statics: t.Statics(),
		Options: t.DefaultOptions(),
		Members: []MemberInfo{},
		Hooks:   []string{},
	}

	for _, n := range t.Chain() {
		result.Chain = append(result.Chain, n.String())
	}

	members := t.Members()
	for _, name := range slices.Sorted(maps.Keys(members)) {
		info := MemberInfo{Name: name, Kind: "method", Owner: memberOwner(t, name)}
		if f, ok := members[name].(engine.Field); ok {
			info.Kind = "field"
			info.Value = f.Value
		}
		result.Members = append(result.Members, info)
	}

	for _, h := range t.Hooks() {
		result.Hooks = append(result.Hooks, h.Label())
	}
	return result
}

// memberOwner returns the nearest type on t's chain that defines name.
func memberOwner(t *engine.Type, name string) string {
	for n := t; n != nil; n = n.Base() {
		if _, ok := n.OwnMembers()[name]; ok {
			return n.String()
		}
	}
	return ""
}

func outputInspectText(formatter *OutputFormatter, r InspectResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "Type: %s (id %d)\n", r.Type, r.ID)
	fmt.Fprintf(w, "Chain: %s\n\n", strings.Join(r.Chain, " → "))

	fmt.Fprintln(w, "Statics:")
	printObject(formatter, r.Statics)
	fmt.Fprintln(w, "Options:")
	printObject(formatter, r.Options)

	fmt.Fprintln(w, "Members:")
	if len(r.Members) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, m := range r.Members {
		if m.Kind == "field" {
			fmt.Fprintf(w, "  %s = %s  [%s]\n", m.Name, renderValue(m.Value), m.Owner)
			continue
		}
		fmt.Fprintf(w, "  %s()  [%s]\n", m.Name, m.Owner)
	}

	fmt.Fprintln(w, "Hooks:")
	if len(r.Hooks) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, h := range r.Hooks {
		fmt.Fprintf(w, "  %d. %s\n", i+1, h)
	}
}

func printObject(formatter *OutputFormatter, obj ir.IRObject) {
	if len(obj) == 0 {
		fmt.Fprintln(formatter.Writer, "  (none)")
		return
	}
	for _, k := range obj.SortedKeys() {
		fmt.Fprintf(formatter.Writer, "  %s = %s\n", k, renderValue(obj[k]))
	}
}

// renderValue prints a value as canonical JSON.
func renderValue(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
