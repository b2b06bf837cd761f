package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrBufferFull is returned by Emit when the worker has fallen behind.
var ErrBufferFull = errors.New("audit buffer full")

const defaultBufferSize = 256

// Publisher hands events to a Worker through a bounded buffer so that slow
// sinks never add latency to registration or deletion.
type Publisher struct {
	events chan Event
}

func NewPublisher(bufferSize int) *Publisher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Publisher{events: make(chan Event, bufferSize)}
}

// Emit stamps and enqueues an event without blocking.
func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	select {
	case p.events <- base:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// Events exposes the buffer to the worker that drains it.
func (p *Publisher) Events() <-chan Event {
	return p.events
}
