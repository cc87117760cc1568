// Package config loads, normalizes, and validates the geomigrate
// configuration file.
//
// Configuration is TOML with a small number of sections: paths for the
// on-disk databases and logs, the asset location provider endpoint, the
// migration batch settings, and log output controls. Load applies defaults
// for anything the file omits and expands ~ in path fields, so callers can
// treat the returned Config as fully resolved.
package config
