// Package gateway exposes the adapter's HTTP surface: health, Prometheus
// metrics, the event-stream WebSocket, and the Telegram webhook receiver.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Gateway is the HTTP server. It is a leaf component — handlers are
// injected, nothing imports it.
type Gateway struct {
	listen    string
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// Optional handlers; nil routes are not mounted.
	webhook http.Handler
	events  http.Handler
}

func New(listen string, logger *slog.Logger) *Gateway {
	return &Gateway{listen: listen, logger: logger}
}

// MountWebhook registers the Telegram webhook receiver at /webhook/telegram.
func (g *Gateway) MountWebhook(h http.Handler) { g.webhook = h }

// MountEvents registers the event-stream WebSocket at /events.
func (g *Gateway) MountEvents(h http.Handler) { g.events = h }

func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", g.handleHealth())
	r.Handle("/metrics", promhttp.Handler())

	if g.events != nil {
		r.Handle("/events", g.events)
	}
	if g.webhook != nil {
		r.Post("/webhook/telegram", g.webhook.ServeHTTP)
	}

	return r
}

// healthResponse is the JSON response for GET /healthz.
type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{
			Status: "ok",
			Uptime: time.Since(g.startedAt).Truncate(time.Second).String(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Start binds the listener and serves in a goroutine. Returns an error
// only if the listen itself fails.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.listen,
		Handler:      g.buildRouter(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.listen)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.listen)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := g.server.Shutdown(shutdownCtx); err != nil {
		return errors.New("gateway: shutdown failed: " + err.Error())
	}

	g.logger.Info("gateway stopped")
	return nil
}
