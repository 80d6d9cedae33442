// Package component defines lifecycle-managed parts of the service (the
// Redis cache, the diarization pipeline manager, the HTTP server) and a
// registry that starts them in order and stops them in reverse.
package component
