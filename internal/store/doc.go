// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing the pipeline to remain
// independent of the SQL dialect that backs the tracking table.
package store
