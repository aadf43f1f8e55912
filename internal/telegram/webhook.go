package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/flemzord/obgram/internal/metrics"
	"github.com/flemzord/obgram/pkg/onebot"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives Telegram updates pushed over HTTPS. It validates
// the shared secret in constant time, converts the payload and hands the
// event to the sink. Telegram retries on non-2xx responses, so conversion
// failures for identifiable payloads still return 200.
type WebhookHandler struct {
	converter *Converter
	sink      func(*onebot.Event)
	secret    string
	logger    *slog.Logger
}

func NewWebhookHandler(converter *Converter, sink func(*onebot.Event), secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		converter: converter,
		sink:      sink,
		secret:    secret,
		logger:    logger,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.secret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("webhook request rejected: bad secret token", "remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var update map[string]any
	if err := json.Unmarshal(body, &update); err != nil {
		h.logger.Warn("webhook payload is not a JSON object", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	started := time.Now()
	ev, err := h.converter.Convert(update)
	if err != nil {
		h.logger.Warn("webhook update has no update_id, dropping", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}
	metrics.ConvertDuration.Observe(time.Since(started).Seconds())
	metrics.EventsTotal.WithLabelValues(string(ev.Type)).Inc()

	h.sink(ev)
	w.WriteHeader(http.StatusOK)
}
