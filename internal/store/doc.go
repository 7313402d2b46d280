// Package store provides a SQLite-backed audit log of tool invocations.
//
// Every call made through the tool registry can be recorded: tool name,
// canonical JSON arguments, outcome, error kind, rendered output and
// duration. The log is append-only.
//
// # Ordering
//
//   - Entries are ordered by seq, an autoincrement logical clock, never by
//     timestamp. Queries use ORDER BY seq ASC, id ASC COLLATE BINARY.
//   - IDs are UUIDv7 by default; tests inject a sequential generator so
//     output is reproducible.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single connection: SQLite has one writer
package store
