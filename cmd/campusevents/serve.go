package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"campusevents-backend/internal/auth"
	"campusevents-backend/internal/config"
	"campusevents-backend/internal/database"
	"campusevents-backend/internal/handler"
	"campusevents-backend/internal/metrics"
	"campusevents-backend/internal/notify"
	"campusevents-backend/internal/repository"
	"campusevents-backend/internal/service"
)

func serveCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg, g))
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	var publisher notify.Publisher = notify.Nop{}
	if cfg.Kafka.Enabled() {
		publisher = notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("registration publishing enabled",
			slog.Any("brokers", cfg.Kafka.Brokers),
			slog.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	events := repository.NewEventRepository(db)
	ledger := repository.NewRegistrationRepository(db)
	users := repository.NewUserRepository(db)
	tokens := auth.NewResolver(cfg.Auth.Secret, cfg.Auth.TTL, time.Now)

	h := handler.New(
		service.NewRegistrationService(events, ledger,
			service.WithPublisher(publisher),
			service.WithMetrics(metrics.New(reg)),
			service.WithLogger(logger)),
		service.NewEventService(events, ledger, logger),
		service.NewAccountService(users, tokens, cfg.AllowAdminSignup, logger),
		tokens,
		logger,
	)

	gin.SetMode(cfg.GinMode)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.Router(h, metrics.Handler(reg), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
