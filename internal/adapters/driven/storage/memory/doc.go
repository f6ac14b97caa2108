// Package memory provides in-memory implementations of driven store ports.
// State is lost when the process exits.
package memory
