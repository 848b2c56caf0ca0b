// Package cli implements the interactive catalog CLI: a REPL over the
// offline-first sync engine. It is also the composition root that wires the
// local database, the HTTP sync client, device identity, the connectivity
// watcher and the per-business sync managers together.
package cli
