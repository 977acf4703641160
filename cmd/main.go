// Package main is the production entry point for tunescape.
//
// tunescape plays local MP3 files and renders audio-reactive visualizers
// driven by the live spectrum of the playing track.
//
// Build:
//
//	go build -o build/tunescape ./cmd
//
// Run:
//
//	./build/tunescape
//
// Configuration is read from TUNESCAPE_* environment variables and an
// optional .env file in the working directory.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tejashwikalptaru/tunescape/internal/app"
)

func main() {
	config, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create the application with dependency injection
	application, err := app.NewApplication(config)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Ensure a graceful shutdown
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}()

	// Run application (blocks until the window closed)
	application.Run()
}
