package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/housecup/backend/internal/attendance"
	"github.com/emilythestrangee/housecup/backend/internal/auth"
	"github.com/emilythestrangee/housecup/backend/internal/broadcast"
	"github.com/emilythestrangee/housecup/backend/internal/config"
	"github.com/emilythestrangee/housecup/backend/internal/database"
	"github.com/emilythestrangee/housecup/backend/internal/election"
	"github.com/emilythestrangee/housecup/backend/internal/handlers"
	"github.com/emilythestrangee/housecup/backend/internal/metrics"
	"github.com/emilythestrangee/housecup/backend/internal/server"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and realtime event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	logger.WithField("instance", instanceID).Info("🏠 Starting housecup")

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	bus := broadcast.NewBus(instanceID, m, logger)
	defer bus.Stop()

	if cfg.Twilio.Enabled() {
		texter := broadcast.NewWinnerTexter(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From, cfg.Twilio.Notify, logger)
		texter.Attach(bus)
		logger.Infof("📱 Winner SMS enabled for %d recipients", len(cfg.Twilio.Notify))
	}

	svc, err := election.NewService(db.DB, bus, m, election.WithLogger(logger))
	if err != nil {
		return err
	}
	codec, err := attendance.NewCodec(cfg.QRSecret)
	if err != nil {
		return err
	}
	marker := attendance.NewMarker(db.DB, codec, bus, m, attendance.WithLogger(logger))

	verifier := auth.NewVerifier(cfg.JWTSecret)
	handler := handlers.NewHandler(svc, marker, bus, logger)
	httpServer := server.New(cfg, db, handler, verifier, registry, logger).HTTPServer()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Relay.Enabled {
		sqlDB, err := db.SQL()
		if err != nil {
			return fmt.Errorf("error getting sql.DB for relay: %w", err)
		}
		relay := broadcast.NewRelay(bus, sqlDB, cfg.Database.DSN(), cfg.Relay.Channel, logger)
		g.Go(func() error {
			return relay.Run(ctx)
		})
	}

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("🛑 Shutting down")

		// event streams only end once the bus closes their channels
		bus.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
