// Package sqlitedb holds the SQLite plumbing shared by the geomigrate
// stores: connection setup with the standard pragmas, schema version
// bookkeeping, and the busy-retry helper.
package sqlitedb
