package audit

import (
	"context"
	"log/slog"
	"time"
)

// drainTimeout bounds how long Run keeps flushing buffered events after its
// context is cancelled.
const drainTimeout = 2 * time.Second

// Sink persists or forwards audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Worker consumes audit events from a channel and writes them to a sink.
// A failed write is logged and dropped; audit delivery is best effort.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run writes events until ctx is cancelled, then flushes whatever is still
// buffered and returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(ctx)
			return ctx.Err()
		case event := <-w.inbox:
			w.write(ctx, event)
		}
	}
}

func (w *Worker) drain(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.write(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) write(ctx context.Context, event Event) {
	if err := w.sink.Write(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "failed to write audit event",
			"event_id", event.ID,
			"action", event.Action,
			"error", err,
		)
	}
}

// LogSink writes audit events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, string(event.Action),
		"log_type", "audit",
		"event_id", event.ID,
		"client_id", event.ClientID,
		"bot_ids", event.BotIDs,
		"request_id", event.RequestID,
	)
	return nil
}
