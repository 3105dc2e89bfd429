// Package session persists the client session in the local SQLite metadata
// table: the opaque token and the JSON-encoded user record, one row each.
package session
