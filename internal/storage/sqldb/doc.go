// Package sqldb wraps database/sql connection pools for the to-do entity
// store. It selects the MySQL, SQLite or Postgres driver, bounds how long a
// caller may wait for a pooled connection, rebinds placeholders per dialect
// and applies the embedded schema migrations.
package sqldb
