// Package store provides SQLite-backed durable storage for generated
// training data.
//
// The store holds:
//   - Runs: one generation run per model, keyed by run id and indexed by
//     config hash for resumption
//   - Rounds: completion markers, written in the same transaction as the
//     round's data
//   - Parameter sets: accepted theta vectors with their summaries
//   - Training rows: labeled feature rows of each parameter set
//   - Rejected sets: filtered-out draws kept for inspection
//
// A round is either fully present (its rounds row exists) or absent, so a
// run interrupted mid-round resumes by regenerating that round. All writes
// use ON CONFLICT DO NOTHING and are idempotent.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Reads are ordered by (idx, row) so exports are deterministic.
package store
