// Package testdb provides database helpers for tests. By default every
// test gets its own migrated SQLite file; setting IMAGEBATCH_TEST_DB_URL
// (and IMAGEBATCH_TEST_DB_DRIVER) runs the same tests against a real server.
package testdb
