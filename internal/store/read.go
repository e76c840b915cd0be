package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/typekit/internal/engine"
)

// ReadCatalog retrieves a catalog by hash.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCatalog(ctx context.Context, hash string) (CatalogRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, catalog, seq, engine_version, ir_version
		FROM catalogs
		WHERE hash = ?
	`, hash)
	return scanCatalog(row)
}

// LatestCatalog returns the most recently written catalog.
// Returns sql.ErrNoRows if the store has none.
func (s *Store) LatestCatalog(ctx context.Context) (CatalogRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, catalog, seq, engine_version, ir_version
		FROM catalogs
		ORDER BY seq DESC, hash COLLATE BINARY ASC
		LIMIT 1
	`)
	return scanCatalog(row)
}

// ReadCatalogs returns every stored catalog in seq order.
func (s *Store) ReadCatalogs(ctx context.Context) ([]CatalogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, catalog, seq, engine_version, ir_version
		FROM catalogs
		ORDER BY seq ASC, hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalogs: %w", err)
	}
	defer rows.Close()

	records := []CatalogRecord{}
	for rows.Next() {
		rec, err := scanCatalog(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalogs: %w", err)
	}
	return records, nil
}

// ReadInstance retrieves a single instance and its hook runs.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadInstance(ctx context.Context, id string) (InstanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, catalog_hash, type_name, args, options, fields, seq
		FROM instances
		WHERE id = ?
	`, id)
	rec, err := scanInstance(row)
	if err != nil {
		return InstanceRecord{}, err
	}

	rec.HookRuns, err = s.ReadHookRuns(ctx, id)
	if err != nil {
		return InstanceRecord{}, err
	}
	return rec, nil
}

// ReadInstances returns instances with their hook runs, ordered
// deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
// An empty catalogHash returns instances of every catalog.
//
// Returns an empty slice (not nil) if none exist.
func (s *Store) ReadInstances(ctx context.Context, catalogHash string) ([]InstanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, catalog_hash, type_name, args, options, fields, seq
		FROM instances
		WHERE ? = '' OR catalog_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, catalogHash, catalogHash)
	if err != nil {
		return nil, fmt.Errorf("query instances: %w", err)
	}

	records := []InstanceRecord{}
	for rows.Next() {
		rec, err := scanInstance(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate instances: %w", err)
	}
	// Release the only connection before the per-instance queries below.
	rows.Close()

	for i := range records {
		records[i].HookRuns, err = s.ReadHookRuns(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// ReadHookRuns returns the hooks run on an instance in ordinal order.
func (s *Store) ReadHookRuns(ctx context.Context, instanceID string) ([]engine.HookRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, label, seq
		FROM hook_runs
		WHERE instance_id = ?
		ORDER BY ordinal ASC
	`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("query hook runs: %w", err)
	}
	defer rows.Close()

	runs := []engine.HookRun{}
	for rows.Next() {
		var run engine.HookRun
		if err := rows.Scan(&run.Ordinal, &run.Label, &run.Seq); err != nil {
			return nil, fmt.Errorf("scan hook run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hook runs: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCatalog(row scanner) (CatalogRecord, error) {
	var rec CatalogRecord
	var catJSON string
	if err := row.Scan(&rec.Hash, &catJSON, &rec.Seq, &rec.EngineVersion, &rec.IRVersion); err != nil {
		if err == sql.ErrNoRows {
			return CatalogRecord{}, err
		}
		return CatalogRecord{}, fmt.Errorf("scan catalog: %w", err)
	}
	cat, err := unmarshalCatalog(catJSON)
	if err != nil {
		return CatalogRecord{}, err
	}
	rec.Catalog = cat
	return rec, nil
}

func scanInstance(row scanner) (InstanceRecord, error) {
	var rec InstanceRecord
	var argsJSON, optsJSON, fieldsJSON string
	if err := row.Scan(&rec.ID, &rec.CatalogHash, &rec.TypeName, &argsJSON, &optsJSON, &fieldsJSON, &rec.Seq); err != nil {
		if err == sql.ErrNoRows {
			return InstanceRecord{}, err
		}
		return InstanceRecord{}, fmt.Errorf("scan instance: %w", err)
	}

	var err error
	if rec.Args, err = unmarshalArray("args", argsJSON); err != nil {
		return InstanceRecord{}, err
	}
	if rec.Options, err = unmarshalObject("options", optsJSON); err != nil {
		return InstanceRecord{}, err
	}
	if rec.Fields, err = unmarshalObject("fields", fieldsJSON); err != nil {
		return InstanceRecord{}, err
	}
	return rec, nil
}
