package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/set-night/invoicing/internal/cache"
	"github.com/set-night/invoicing/internal/config"
	"github.com/set-night/invoicing/internal/gateway"
	"github.com/set-night/invoicing/internal/handler"
	"github.com/set-night/invoicing/internal/repository"
	"github.com/set-night/invoicing/internal/service"
	"github.com/set-night/invoicing/internal/telegram"
)

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the settlement HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg)

			// Amounts go over the wire as JSON numbers.
			decimal.MarshalJSONWithoutQuotes = true

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply migrations on startup")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, skipMigrations bool) error {
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if !skipMigrations {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	invoices := repository.NewInvoiceRepository(pool)
	orders := gateway.NewOrderClient(cfg.OrderServiceURL, cfg.GatewayTimeout)
	bookings := gateway.NewBookingClient(cfg.BookingServiceURL, cfg.GatewayTimeout)

	var (
		alerter  service.Alerter
		reporter handler.ErrorReporter
	)
	if cfg.AlertsEnabled() {
		b, err := bot.New(cfg.TelegramBotToken)
		if err != nil {
			slog.Warn("telegram alerts disabled", "error", err)
		} else {
			alerts := telegram.NewAlertLoggerFromConfig(b, cfg)
			alerter = alerts
			reporter = alerts
		}
	}

	var idempotency cache.Cache
	if cfg.IdempotencyEnabled() {
		idempotency = cache.NewRedisCache(cfg.RedisAddr, config.ServiceName)
		defer idempotency.Close()
	}

	mirror := service.NewStatusMirror(invoices, orders, alerter)
	settlement := service.NewSettlementService(
		invoices,
		service.NewOrderAggregator(orders),
		service.NewDepositResolver(bookings),
		mirror,
	)

	h := handler.New(handler.Deps{
		Settlement:     settlement,
		DB:             invoices,
		Cache:          idempotency,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Errors:         reporter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server",
			"addr", cfg.HTTPAddr,
			"alerts", alerter != nil,
			"idempotency", idempotency != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown", "error", err)
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), config.MirrorDrainTimeout)
	defer cancelDrain()
	if err := mirror.Wait(drainCtx); err != nil {
		slog.Warn("order status mirror did not drain", "error", err)
	}
	if err := h.Wait(drainCtx); err != nil {
		slog.Warn("error reports did not drain", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
