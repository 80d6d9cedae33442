// Package diarization labels transcript segments with speakers.
//
// A Manager owns the single process-wide model handle. It constructs the
// model once, in the background, and answers callers immediately with a
// NotReadyError while construction runs or after it failed. A Service
// combines the Manager with audio normalization, the model call and Merge,
// which assigns each transcript segment the speaker that overlaps it most.
//
// Model backends implement Loader and register through RegisterBackend:
//
//   - diarization/pyannote: HTTP model host
//   - diarization/command: local subprocess
package diarization
