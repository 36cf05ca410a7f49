// Package task coordinates the long-running parts of the pipeline: waiting
// for tracking rows to be completed by the external writer, handing pooled
// connections to waits parked in the overflow queue, and running batch jobs
// in the background so they don't block HTTP request handling.
package task
