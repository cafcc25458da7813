// Package migration manages the SQLite schema for the office-hours platform.
// Migrations are ordered, embedded DDL statements applied exactly once inside
// a transaction, tracked through a schema_migrations table.
package migration
