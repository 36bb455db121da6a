// Package main implements the achepred CLI, which builds the AChE
// bioactivity dataset, filters its fingerprint features and trains a random
// forest classifier.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// a missing .env file is not an error
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
