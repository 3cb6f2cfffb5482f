// Package linkstore persists Polymart account links.
//
// A link row is created in a pending state (no token) when a user initiates
// linking, receives its token when Polymart calls back with a matching state
// nonce, and is deleted when the user disconnects. The store runs on SQLite
// by default and on PostgreSQL when configured.
package linkstore
