// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides
// type-safe access to the settings of the task client, the connection pool,
// the completion waiter and the outer surfaces (API, CLI, storage).
package config
