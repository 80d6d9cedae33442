// Package util holds small helpers shared across the service: size parsing
// for config values, secret masking for logs, pointer helpers for optional
// numeric fields and env value cleanup.
package util
