// Package staging persists the working set of migration candidates in
// SQLite and exposes the bulk operations the migration engine drives.
//
// The candidate table is a strict queue: rows are bulk-inserted once during
// the import phase, read back in bounded pages in insertion order, and
// bulk-deleted once a page has been classified. A local ID appears at most
// once while staged. The store also hosts the re-upload queue the downstream
// marker writes into, so the host upload pipeline has one database to drain.
//
// Treat this package as the single source of truth for staging semantics;
// schema changes bump schemaVersion and require deleting the database file.
package staging
