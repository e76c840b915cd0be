// Package store provides SQLite-backed durable storage for typekit.
//
// The store is an append-only log with:
//   - Catalogs: compiled catalogs, content-addressed by ir.CatalogHash
//   - Instances: one row per instantiation (type, args, resulting options and fields)
//   - Hook Runs: the init hooks executed on each instance, in order
//
// # Logical Time
//
// All ordering uses seq INTEGER (logical clock), never timestamps.
// Queries order by seq ASC, id ASC COLLATE BINARY so results are identical
// across runs. LastSeq lets a new engine clock resume after the log.
//
// # Replay
//
// Replay rebuilds each recorded instance from its stored catalog with the
// recorded ID and seq, and reports every difference. An empty mismatch
// list means the engine is deterministic over the log.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
