// Package migration drives the one-time location-metadata backfill over the
// file catalog.
//
// The engine runs in two phases. The import phase copies every backed-up
// catalog ID lacking coordinates into the staging queue, exactly once per
// installation, guarded by a durable checkpoint flag. The classification
// phase drains the queue in bounded pages: each staged ID is resolved
// against the location provider, IDs with real coordinates are forwarded to
// the re-upload marker, and the whole page is deleted regardless of
// per-ID outcome so the queue strictly shrinks and the loop always
// terminates. A second checkpoint flag records overall completion.
//
// Run is safe to invoke concurrently and repeatedly: an in-memory
// single-flight guard coalesces overlapping callers onto one physical run,
// and the durable checkpoints make interrupted runs resumable. Failures are
// logged and swallowed at the Run boundary; callers observe progress only
// through IsComplete.
package migration
