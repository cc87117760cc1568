// Package main hosts the geomigrate CLI entrypoint and command graph.
//
// The Cobra-based command tree wires configuration resolution, store setup,
// and logging, then surfaces the migration engine through run, status, and
// config commands. Keep this package lean: new functionality belongs in the
// internal packages first, surfaced here through dedicated commands or flags.
package main
