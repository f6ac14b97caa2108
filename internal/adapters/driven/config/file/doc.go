// Package file provides the TOML configuration store and maps its keys
// onto domain.Config.
package file
