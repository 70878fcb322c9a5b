package cli

import (
	"log/slog"
	"os"

	"github.com/set-night/invoicing/internal/config"
)

func setupLogger(cfg *config.Config) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
}
