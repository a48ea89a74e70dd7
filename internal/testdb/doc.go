// Package testdb provides helpers for PostgreSQL integration tests: it finds
// the test database from the environment, skips tests when none is
// configured, and runs each test body inside a transaction that is rolled
// back afterwards so tests can run in parallel without cleanup.
package testdb
