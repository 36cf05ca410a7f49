// Package sqlstore implements the store interfaces on top of database/sql.
// A single implementation serves every dialect of package sqldb: queries
// are written once with '?' placeholders and rebound, and the generated-key
// strategy of inserts is chosen per dialect.
package sqlstore
