// Package preflight verifies the environment before a migration run: data
// directory permissions and provider reachability.
package preflight
