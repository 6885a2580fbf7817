package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jeremyjsx/blogdesk/internal/config"
	"github.com/jeremyjsx/blogdesk/internal/events"
)

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is required")
		os.Exit(1)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	if err := events.DeclareExchange(ch); err != nil {
		logger.Error("failed to declare exchange", "error", err)
		os.Exit(1)
	}

	q, err := ch.QueueDeclare(events.QueueName, true, false, false, false, nil)
	if err != nil {
		logger.Error("failed to declare queue", "error", err)
		os.Exit(1)
	}

	if err := ch.QueueBind(q.Name, events.BindingKey, events.ExchangeName, false, nil); err != nil {
		logger.Error("failed to bind queue", "error", err)
		os.Exit(1)
	}

	deliveries, err := ch.Consume(q.Name, "blogdesk-worker", false, false, false, false, nil)
	if err != nil {
		logger.Error("failed to start consuming", "error", err)
		os.Exit(1)
	}

	logger.Info("blog event worker started", "queue", q.Name)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			logger.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handleDelivery(logger, d)
		}
	}
}

func handleDelivery(logger *slog.Logger, d amqp.Delivery) {
	var e events.BlogEvent
	if err := json.Unmarshal(d.Body, &e); err != nil {
		logger.Error("invalid event body", "error", err)
		_ = d.Nack(false, false)
		return
	}

	attrs := []any{
		"type", e.Type,
		"blog_id", e.Payload.BlogID,
		"title", e.Payload.Title,
		"category", e.Payload.Category,
	}
	switch e.Type {
	case events.TypeBlogPublished:
		logger.Info("newsletter: blog published", attrs...)
	case events.TypeBlogPurged:
		logger.Info("blog permanently purged", attrs...)
	case events.TypeBlogCreated, events.TypeBlogUpdated, events.TypeBlogDeleted:
		logger.Info("blog event received", attrs...)
	default:
		logger.Debug("ignoring event type", "type", e.Type)
	}

	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack", "error", err)
	}
}
