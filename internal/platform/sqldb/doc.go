// Package sqldb opens the tracking datastore for one of the supported SQL
// dialects and applies its embedded schema migrations.
//
// The same tracking table is reachable through PostgreSQL (pgx), SQL Server
// (go-mssqldb), MySQL and SQLite (modernc). Queries in the rest of the
// application are written with '?' placeholders and rebound per dialect.
package sqldb
