package telegram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/obgram/internal/metrics"
	"github.com/flemzord/obgram/pkg/onebot"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// OffsetStore persists the polling offset so a restart resumes after the
// last converted update instead of replaying it.
type OffsetStore interface {
	LastUpdateID(ctx context.Context) (int64, error)
	SaveUpdateID(ctx context.Context, id int64) error
}

// Poller implements long-polling for receiving Telegram updates. Each
// received update is converted exactly once, in receipt order, and the
// resulting event handed to the sink.
type Poller struct {
	client    *Client
	converter *Converter
	sink      func(*onebot.Event)
	offsets   OffsetStore
	logger    *slog.Logger
	config    Config
	stopCh    chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// NewPoller creates a new Poller. offsets may be nil, in which case polling
// starts from the platform's current position on every run.
func NewPoller(client *Client, converter *Converter, sink func(*onebot.Event), offsets OffsetStore, logger *slog.Logger, config Config) *Poller {
	return &Poller{
		client:    client,
		converter: converter,
		sink:      sink,
		offsets:   offsets,
		logger:    logger,
		config:    config,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start() {
	go p.loop()
}

// Stop signals the polling loop to stop and waits for it to finish.
// Safe to call multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.done
}

func (p *Poller) loop() {
	defer close(p.done)

	var offset int64
	if p.offsets != nil {
		saved, err := p.offsets.LastUpdateID(p.ctx())
		if err != nil {
			p.logger.Warn("loading saved update offset failed", "error", err)
		} else if saved > 0 {
			offset = saved + 1
		}
	}

	var consecutiveErrors int
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		updates, err := p.client.GetUpdates(p.ctx(), offset, p.config.PollingTimeout, p.config.AllowedUpdates)
		if err != nil {
			if p.stopped() {
				return
			}
			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.logger.Warn("polling paused after consecutive errors",
					"pause", errorPauseDuration,
				)
				select {
				case <-p.stopCh:
					return
				case <-time.After(errorPauseDuration):
				}
				consecutiveErrors = 0
			}
			continue
		}

		consecutiveErrors = 0

		for _, update := range updates {
			if id := intField(update, "update_id"); id >= offset {
				offset = id + 1
			}
			p.handleUpdate(update)
		}

		if p.offsets != nil && len(updates) > 0 {
			if err := p.offsets.SaveUpdateID(p.ctx(), offset-1); err != nil {
				p.logger.Warn("saving update offset failed", "error", err)
			}
		}
	}
}

// handleUpdate converts a single update and hands the event to the sink.
// Conversion is total for identifiable updates; only id-less payloads are
// skipped, and those are logged rather than silently discarded.
func (p *Poller) handleUpdate(update map[string]any) {
	_, span := tracer.Start(p.ctx(), "telegram.convert")
	defer span.End()

	started := time.Now()
	ev, err := p.converter.Convert(update)
	if err != nil {
		p.logger.Debug("skipping unidentifiable update", "reason", err)
		return
	}
	metrics.ConvertDuration.Observe(time.Since(started).Seconds())
	metrics.EventsTotal.WithLabelValues(string(ev.Type)).Inc()

	if ev.Type == onebot.EventUnknown {
		p.logger.Debug("unrecognized update shape",
			"update_id", ev.ID,
			"warning", ev.Warning,
		)
	}

	p.sink(ev)
}

func (p *Poller) stopped() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}

// ctx adapts the stop channel to a context.Context for the HTTP client,
// cancelling in-flight long polls when the poller stops.
func (p *Poller) ctx() context.Context {
	return contextWrapper{stopCh: p.stopCh}
}

type contextWrapper struct {
	stopCh <-chan struct{}
}

func (c contextWrapper) Deadline() (time.Time, bool) { return time.Time{}, false }
func (c contextWrapper) Done() <-chan struct{}       { return c.stopCh }

func (c contextWrapper) Err() error {
	select {
	case <-c.stopCh:
		return errPollerStopped
	default:
		return nil
	}
}

func (c contextWrapper) Value(any) any { return nil }

var errPollerStopped = pollerStoppedError{}

type pollerStoppedError struct{}

func (pollerStoppedError) Error() string { return "poller stopped" }
