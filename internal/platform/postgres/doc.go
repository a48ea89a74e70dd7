// Package postgres provides PostgreSQL implementations of the store
// interfaces, using the pgx stdlib driver through database/sql. Schema
// migrations are embedded and applied with goose.
package postgres
