package store

import (
	"context"
	"fmt"

	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
)

// CatalogRecord is a compiled catalog as stored, keyed by its content hash.
type CatalogRecord struct {
	Hash          string     `json:"hash"`
	Catalog       ir.Catalog `json:"catalog"`
	Seq           int64      `json:"seq"`
	EngineVersion string     `json:"engine_version"`
	IRVersion     string     `json:"ir_version"`
}

// InstanceRecord is one instantiation: the inputs needed to reproduce it
// (catalog, type, args) and the observed outcome (options, fields, hooks).
type InstanceRecord struct {
	ID          string           `json:"id"`
	CatalogHash string           `json:"catalog_hash"`
	TypeName    string           `json:"type_name"`
	Args        ir.IRArray       `json:"args"`
	Options     ir.IRObject      `json:"options"`
	Fields      ir.IRObject      `json:"fields"`
	Seq         int64            `json:"seq"`
	HookRuns    []engine.HookRun `json:"hook_runs"`
}

// WriteCatalog stores a compiled catalog under its content hash and
// returns the hash. Uses ON CONFLICT(hash) DO NOTHING: writing the same
// catalog twice keeps the first seq.
func (s *Store) WriteCatalog(ctx context.Context, cat ir.Catalog, seq int64) (string, error) {
	hash, err := ir.CatalogHash(cat)
	if err != nil {
		return "", fmt.Errorf("write catalog: %w", err)
	}

	catJSON, err := marshalCatalog(cat)
	if err != nil {
		return "", fmt.Errorf("write catalog: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalogs (hash, catalog, seq, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hash, catJSON, seq, ir.EngineVersion, ir.IRVersion)
	if err != nil {
		return "", fmt.Errorf("write catalog: %w", err)
	}
	return hash, nil
}

// WriteInstance inserts an instance and its hook runs in one transaction.
// Duplicate instance IDs are silently ignored for idempotency.
//
// Note: The catalog referenced by CatalogHash must exist (foreign key constraint).
func (s *Store) WriteInstance(ctx context.Context, rec InstanceRecord) error {
	argsJSON, err := marshalValue("args", rec.Args)
	if err != nil {
		return fmt.Errorf("write instance: %w", err)
	}
	optsJSON, err := marshalValue("options", rec.Options)
	if err != nil {
		return fmt.Errorf("write instance: %w", err)
	}
	fieldsJSON, err := marshalValue("fields", rec.Fields)
	if err != nil {
		return fmt.Errorf("write instance: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write instance: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO instances (id, catalog_hash, type_name, args, options, fields, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.CatalogHash, rec.TypeName, argsJSON, optsJSON, fieldsJSON, rec.Seq)
	if err != nil {
		return fmt.Errorf("write instance: insert: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write instance: rows affected: %w", err)
	}
	if inserted == 0 {
		return nil
	}

	for _, run := range rec.HookRuns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO hook_runs (instance_id, ordinal, label, seq)
			VALUES (?, ?, ?, ?)
		`, rec.ID, run.Ordinal, run.Label, run.Seq)
		if err != nil {
			return fmt.Errorf("write instance: hook run %d: %w", run.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write instance: commit: %w", err)
	}
	return nil
}

// RecordInstance snapshots a constructed instance and writes it.
func (s *Store) RecordInstance(ctx context.Context, catalogHash string, args ir.IRArray, inst *engine.Instance) error {
	return s.WriteInstance(ctx, SnapshotInstance(catalogHash, args, inst))
}

// SnapshotInstance captures an instance's observable state as a record.
func SnapshotInstance(catalogHash string, args ir.IRArray, inst *engine.Instance) InstanceRecord {
	if args == nil {
		args = ir.IRArray{}
	}
	return InstanceRecord{
		ID:          inst.ID(),
		CatalogHash: catalogHash,
		TypeName:    inst.Type().Name(),
		Args:        args,
		Options:     inst.Options(),
		Fields:      inst.Fields(),
		Seq:         inst.Seq(),
		HookRuns:    inst.HookRuns(),
	}
}
