package handlers

import (
	"context"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jeremyjsx/blogdesk/internal/blogs"
)

type HealthDeps struct {
	Store       blogs.Store
	RabbitMQURL string
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func Health(deps *HealthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := "healthy"

		if err := pingStore(ctx, deps.Store); err != nil {
			checks["store"] = "unhealthy"
			status = "unhealthy"
		} else {
			checks["store"] = "ok"
		}

		if deps.RabbitMQURL != "" {
			conn, err := amqp.Dial(deps.RabbitMQURL)
			if err != nil {
				checks["rabbitmq"] = "unhealthy"
				if status == "healthy" {
					status = "degraded"
				}
			} else {
				_ = conn.Close()
				checks["rabbitmq"] = "ok"
			}
		} else {
			checks["rabbitmq"] = "skipped"
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{Status: status, Checks: checks})
	}
}

func pingStore(ctx context.Context, store blogs.Store) error {
	if p, ok := store.(blogs.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := store.Load(ctx)
	return err
}
