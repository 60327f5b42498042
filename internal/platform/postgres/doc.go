// Package postgres provides PostgreSQL implementations of the store
// interfaces, the mapping of driver errors onto store errors, and the
// embedded schema migrations.
package postgres
