// Package services defines the shared error taxonomy for geomigrate's
// external collaborators. Sentinel errors classify failures (not found,
// transient, configuration) and Wrap tags an error chain with component and
// operation context while preserving errors.Is matching.
package services
