// Package sqlite provides SQLite implementations of the store interfaces on
// top of sqlx and the pure-Go modernc.org/sqlite driver. It backs local runs
// and the engine's tests; production deployments use the postgres package.
package sqlite
