// Package store provides SQLite-backed durable storage for contract line
// forests.
//
// A contract is saved as a header row plus one row per line. The tree shape
// is stored as parent_option_id, a self-referencing foreign key with
// ON DELETE CASCADE, so deleting a line removes its options in the database
// the same way the engine removes them in memory.
//
// # Conventions
//
//   - Amounts and quantities are decimal strings, never floats
//   - Lines load ordered by sequence, then id, so a reloaded forest is
//     deterministic
//   - Pending ids ("new-N") are never persisted; promote drafts first
//   - Each save runs in one transaction and replaces the contract's lines
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity and cascades
package store
