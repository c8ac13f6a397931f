// Package pgstore provides a PostgreSQL-backed session persistence adapter
// on top of a pgx connection pool.
//
// The schema ships as embedded goose migrations; call Migrate once at
// startup before constructing the store. Session and user lookups join in a
// single statement so validation observes one consistent snapshot.
package pgstore
