// Package settings persists durable key/value flags in SQLite. The
// migration engine records its checkpoints here so a partial run resumes
// cleanly after a process restart.
package settings
