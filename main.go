// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"forestric/cmd"
	"forestric/internal/audio"
	"forestric/internal/build"
	applog "forestric/internal/log"
)

// main runs in three phases:
//
// 1. Startup:
//   - Initialize build information
//   - Install signal handling
//
// 2. Command:
//   - Parse flags and load configuration
//   - Run the editor or a one-off command; PortAudio is started lazily by
//     whichever command first needs a device
//
// 3. Shutdown:
//   - Terminate PortAudio if it was started
func main() {
	// ==================== STARTUP PHASE ====================

	// Initialize build information including version, commit hash, and build time
	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	// Cancel the running command on interrupt so it can stop playback and
	// close its stream before exit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// ==================== COMMAND PHASE ====================

	err := cmd.Execute(ctx, os.Args[1:])
	stop()

	// ==================== SHUTDOWN PHASE ====================

	if cerr := audio.AcquireContext().Close(); cerr != nil {
		applog.Errorf("Error closing audio host: %v", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
