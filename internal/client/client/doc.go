// Package client provides the engine's side of the remote sync API (an
// HTTP/JSON client with transport-level retry) and the local database
// bootstrap (SQLite plus goose migrations).
package client
