// Package errors provides the application error type shared by the HTTP
// layer, the diarization service and its backends.
//
// An AppError carries a machine-readable code, a client-safe message, the
// HTTP status to answer with and an optional cause that is logged but never
// sent to clients.
package errors
