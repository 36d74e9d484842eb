// Package store persists session, project, ticket, chat, and activity
// metadata in SQLite. It is the boundary-layer collaborator of the terminal
// core: the core never touches SQL, the store never touches a PTY.
//
// All access goes through a fixed-size connection pool in WAL mode. Rows use
// opaque uuid ids and RFC3339 UTC timestamps. Terminal output is never
// persisted here; scrollback lives in memory inside the terminal package.
package store
