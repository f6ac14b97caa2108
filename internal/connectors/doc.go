// Package connectors holds the file sources documents arrive from: a local
// drop directory with a debounced watcher, a web page fetcher and a Google
// Drive folder. Each one implements the driven ports in core/ports/driven.
package connectors
