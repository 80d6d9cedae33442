// Package audio prepares uploaded audio for the diarization model.
//
// Normalization converts arbitrary input to 16 kHz mono WAV. It is best
// effort: callers fall back to the original bytes when every normalizer
// fails. The model backends read audio from a path, so uploads are staged
// through WithScratchFile, which removes the file on every exit path.
package audio
