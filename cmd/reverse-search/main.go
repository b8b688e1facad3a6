package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env", "error", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
