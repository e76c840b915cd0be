package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
)

// ReplayResult summarizes a replay of the whole log.
type ReplayResult struct {
	Catalogs      int              `json:"catalogs"`
	Instances     int              `json:"instances"`
	Deterministic bool             `json:"deterministic"`
	Mismatches    []ReplayMismatch `json:"mismatches,omitempty"`
}

// ReplayMismatch is one difference between a recorded instance and its
// re-execution.
type ReplayMismatch struct {
	InstanceID string `json:"instance_id,omitempty"`
	TypeName   string `json:"type_name,omitempty"`
	Field      string `json:"field"` // catalog_hash, error, seq, options, fields, hook_runs
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
}

// Replay re-executes every recorded instantiation against its stored
// catalog and compares the outcome with what was recorded.
//
// Each instance is rebuilt in a fresh registry whose clock resumes at the
// recorded seq and whose ID generator yields the recorded ID, so a
// deterministic engine reproduces the record exactly. opts are applied
// first; the clock and ID generator always come from the record.
func (s *Store) Replay(ctx context.Context, lib engine.Library, opts ...engine.Option) (*ReplayResult, error) {
	catalogs, err := s.ReadCatalogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	result := &ReplayResult{Catalogs: len(catalogs)}
	for _, cr := range catalogs {
		if hash, err := ir.CatalogHash(cr.Catalog); err != nil || hash != cr.Hash {
			result.Mismatches = append(result.Mismatches, ReplayMismatch{
				Field:    "catalog_hash",
				Expected: cr.Hash,
				Actual:   hash,
			})
			continue
		}

		instances, err := s.ReadInstances(ctx, cr.Hash)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}

		for _, rec := range instances {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result.Instances++
			result.Mismatches = append(result.Mismatches, replayInstance(cr, rec, lib, opts)...)
		}
	}

	result.Deterministic = len(result.Mismatches) == 0
	return result, nil
}

func replayInstance(cr CatalogRecord, rec InstanceRecord, lib engine.Library, opts []engine.Option) []ReplayMismatch {
	mismatch := func(field, expected, actual string) ReplayMismatch {
		return ReplayMismatch{
			InstanceID: rec.ID,
			TypeName:   rec.TypeName,
			Field:      field,
			Expected:   expected,
			Actual:     actual,
		}
	}

	buildOpts := append(slices.Clone(opts),
		engine.WithClock(engine.NewClockAt(rec.Seq-1)),
		engine.WithIDGenerator(engine.NewFixedGenerator(rec.ID)),
	)
	reg, err := engine.Build(&cr.Catalog, lib, buildOpts...)
	if err != nil {
		return []ReplayMismatch{mismatch("error", "", err.Error())}
	}
	typ, ok := reg.Lookup(rec.TypeName)
	if !ok {
		return []ReplayMismatch{mismatch("error", "", fmt.Sprintf("type %q not in catalog", rec.TypeName))}
	}
	inst, err := typ.New(rec.Args...)
	if err != nil {
		return []ReplayMismatch{mismatch("error", "", err.Error())}
	}

	got := SnapshotInstance(cr.Hash, rec.Args, inst)

	var out []ReplayMismatch
	if got.Seq != rec.Seq {
		out = append(out, mismatch("seq", fmt.Sprint(rec.Seq), fmt.Sprint(got.Seq)))
	}
	if exp, act := canonicalString(rec.Options), canonicalString(got.Options); exp != act {
		out = append(out, mismatch("options", exp, act))
	}
	if exp, act := canonicalString(rec.Fields), canonicalString(got.Fields); exp != act {
		out = append(out, mismatch("fields", exp, act))
	}
	if exp, act := formatHookRuns(rec.HookRuns), formatHookRuns(got.HookRuns); exp != act {
		out = append(out, mismatch("hook_runs", exp, act))
	}
	return out
}

func canonicalString(obj ir.IRObject) string {
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}

// formatHookRuns renders runs as "0:label@seq;1:label@seq".
func formatHookRuns(runs []engine.HookRun) string {
	parts := make([]string, len(runs))
	for i, r := range runs {
		parts[i] = fmt.Sprintf("%d:%s@%d", r.Ordinal, r.Label, r.Seq)
	}
	return strings.Join(parts, ";")
}
