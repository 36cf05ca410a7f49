// Package api handles incoming HTTP requests for batch submission, batch
// results, background job state and image analysis. It validates requests,
// calls the services and maps their errors to HTTP status codes without
// leaking internal details.
package api
