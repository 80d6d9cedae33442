// Package process runs external tools (ffmpeg, a diarization CLI) as
// subprocesses with captured output and graceful cancellation: on context
// cancellation the whole process group gets SIGTERM, then SIGKILL after a
// grace period.
package process
