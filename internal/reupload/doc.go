// Package reupload is the downstream consumer of the migration engine's
// classification verdicts. Assets found to have location data are handed to
// a Marker, which the host wires to its upload pipeline.
package reupload
