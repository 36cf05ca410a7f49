// Package service implements the image batch pipeline on top of the remote
// task client, the tracking store and the completion waiter.
//
// RowProcessor is the error boundary of the pipeline: every failure of a
// single row, including a panic, becomes an error entry in that row's
// result. BatchService fans rows out with bounded concurrency and runs
// whole batches as background jobs.
package service
