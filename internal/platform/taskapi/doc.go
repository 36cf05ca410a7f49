// Package taskapi is the HTTP client of the remote image task service. It
// creates one task per submitted row and can poll a task's status directly.
//
// Task creation is never retried: the remote create is not idempotent, so a
// duplicate request could schedule the same work twice. Status polls are
// read-only and are retried on transport errors and 5xx responses.
package taskapi
