package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Tanmoy095/loadboard/config"
	"github.com/Tanmoy095/loadboard/internal/kafka"
	"github.com/Tanmoy095/loadboard/internal/notifier"
	"github.com/Tanmoy095/loadboard/internal/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if !cfg.KafkaEnabled() {
		logger.Error("KAFKA_BROKER and KAFKA_TOPIC are required")
		os.Exit(1)
	}

	// Two connections: amqp channels must not be shared between the
	// publishing bridge and the consuming worker.
	producerMQ, err := rabbitmq.NewClient(cfg.GetRabbitMQURL())
	if err != nil {
		logger.Error("connect rabbitmq", "error", err)
		os.Exit(1)
	}
	consumerMQ, err := rabbitmq.NewClient(cfg.GetRabbitMQURL())
	if err != nil {
		logger.Error("connect rabbitmq", "error", err)
		os.Exit(1)
	}
	if err := producerMQ.CreateQueue(notifier.EmailQueue); err != nil {
		logger.Error("declare queue", "queue", notifier.EmailQueue, "error", err)
		os.Exit(1)
	}
	msgs, err := consumerMQ.Consume(notifier.EmailQueue)
	if err != nil {
		logger.Error("consume queue", "queue", notifier.EmailQueue, "error", err)
		os.Exit(1)
	}

	consumer := kafka.NewConsumer([]string{cfg.KafkaBroker}, cfg.KafkaTopic, notifier.GroupID, logger)
	bridge := notifier.NewBridge(producerMQ, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		notifier.RunEmailWorker(ctx, msgs, notifier.LogSender{Logger: logger}, logger)
	}()
	go func() {
		defer wg.Done()
		consumer.Start(ctx, bridge.Handle)
	}()
	logger.Info("notifier running", "topic", cfg.KafkaTopic, "group", notifier.GroupID, "queue", notifier.EmailQueue)

	<-ctx.Done()
	logger.Info("shutting down notifier")
	wg.Wait()

	if err := consumer.Close(); err != nil {
		logger.Warn("close kafka consumer", "error", err)
	}
	if err := producerMQ.Close(); err != nil {
		logger.Warn("close rabbitmq", "error", err)
	}
	if err := consumerMQ.Close(); err != nil {
		logger.Warn("close rabbitmq", "error", err)
	}
	logger.Info("notifier stopped")
}
