// Command diarizer labels transcript segments with speakers.
//
// Usage:
//
//	diarizer serve                 run the HTTP service
//	diarizer diarize               label one recording locally
//	diarizer merge                 merge diarization turns into segments offline
//	diarizer submit                send audio to a running service
//	diarizer token                 issue a bearer token for a secured service
//	diarizer version               print build information
package main

import (
	"fmt"
	"os"

	"github.com/kbukum/diarizer/cmd/diarizer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
