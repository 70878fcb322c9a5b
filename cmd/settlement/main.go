package main

import (
	"log/slog"
	"os"

	"github.com/set-night/invoicing/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("settlement failed", "error", err)
		os.Exit(1)
	}
}
