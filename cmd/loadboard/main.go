package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"
	"golang.org/x/text/language"

	"github.com/Tanmoy095/loadboard/config"
	httpServer "github.com/Tanmoy095/loadboard/handler/http"
	"github.com/Tanmoy095/loadboard/internal/currency"
	"github.com/Tanmoy095/loadboard/internal/fanout"
	"github.com/Tanmoy095/loadboard/internal/kafka"
	"github.com/Tanmoy095/loadboard/internal/reminder"
	"github.com/Tanmoy095/loadboard/service"
	"github.com/Tanmoy095/loadboard/store/sqlstore"
)

const (
	sessionQueueSize = 64
	shutdownTimeout  = 15 * time.Second
	metricTimeout    = 2 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("loadboard stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.GetDSN())
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("database ready", "driver", st.Dialect().String())

	// Domain events are optional; a nil publisher skips them.
	var publisher kafka.Publisher
	if cfg.KafkaEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic, logger)
		defer producer.Close()
		publisher = producer
		logger.Info("publishing domain events", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	} else {
		logger.Warn("KAFKA_BROKER not set, domain events disabled")
	}

	hub := fanout.NewHub(sessionQueueSize, logger)
	projector := service.NewProjector(st, currency.NewFormatter(cfg.Currency, language.English), logger)
	refresher := service.NewRefresher(st, projector, hub, logger)

	var reminders service.DepositReminders = reminder.NoopScheduler{}
	if cfg.TemporalHostPort != "" {
		tc, err := client.Dial(client.Options{
			HostPort: cfg.TemporalHostPort,
			Logger:   sdklog.NewStructuredLogger(logger),
		})
		if err != nil {
			return err
		}
		defer tc.Close()

		w := reminder.NewWorker(tc, &reminder.Activities{Shipments: st, Notifier: hub})
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
		reminders = reminder.NewTemporalScheduler(tc, cfg.ReminderInterval, cfg.ReminderMax, logger)
		logger.Info("deposit reminders enabled", "temporal", cfg.TemporalHostPort, "task_queue", reminder.TaskQueue)
	}

	shipments := service.NewShipmentService(service.ShipmentDeps{
		Tx:        st,
		Shipments: st,
		Bids:      st,
		ReadModel: st,
		Projector: projector,
		Refresher: refresher,
		Publisher: publisher,
		Reminders: reminders,
		Logger:    logger,
	})
	listings := service.NewListingService(st, st, projector, refresher, publisher, logger)
	dashboard := service.NewDashboardService(st, metricTimeout, logger)

	handler := httpServer.NewHandler(httpServer.Deps{
		Shipments: shipments,
		Listings:  listings,
		Dashboard: dashboard,
		Projector: projector,
		WS:        fanout.NewServer(hub, refresher, logger).Handler(),
		Health:    st,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
