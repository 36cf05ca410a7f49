// Package logger sets up the process-wide log/slog JSON logger from the
// server configuration, carries request and job loggers through
// context.Context, and builds job loggers that also write every record to a
// per-job file for upload once the job ends.
package logger
