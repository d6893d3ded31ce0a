// Package store provides SQLite-backed persistence for mods and rules.
//
// The store is a catalog, not an event log: rows are written with
// idempotent upserts and deleted by primary key. The resolve engine never
// touches it; the CLI loads mod sets and rule sets out of it and feeds
// them to the engine.
//
// Identity:
//   - Mods are keyed by case-folded name. The row preserves the installed
//     spelling; re-importing under a different spelling updates the row
//     (last import wins) instead of duplicating it.
//   - Rules are keyed by content digest, so re-importing a rule file never
//     duplicates rules.
//
// Determinism:
//   - Every listing includes ORDER BY with COLLATE BINARY so identical
//     store contents list identically across platforms and SQLite builds.
//   - Listings return empty slices, never nil.
//
// Predicates travel inside the rule row as a JSON array; there is no
// relationship table. Graph adjacency belongs to the resolve engine and is
// rebuilt per pass, never persisted.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
