// Package version exposes build metadata for the diarizer binary.
//
// Values are injected at link time:
//
//	go build -ldflags "-X github.com/kbukum/diarizer/version.Version=1.2.0"
//
// and otherwise recovered from the module's embedded VCS settings.
package version
