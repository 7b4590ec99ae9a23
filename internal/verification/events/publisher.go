package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBufferFull is returned by Emit in async mode when the worker is behind.
var ErrBufferFull = errors.New("event buffer full")

// Sink receives published events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Publisher emits submission events to a Sink, either inline or through a
// buffered worker.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	inbox     chan Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		w := NewWorker(sink, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			w.Run(context.Background())
		}()
	}
	return p
}

// Emit stamps and publishes an event. In async mode it never blocks: a full
// buffer returns ErrBufferFull and the event is dropped.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.sink.Write(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.sink.Write(ctx, event)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "event dropped",
			"type", event.Type,
			"submission_id", event.SubmissionID,
		)
		return ErrBufferFull
	}
}

// Close stops accepting buffered events and waits for the worker to drain.
func (p *Publisher) Close() {
	if p == nil || p.inbox == nil {
		return
	}
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		<-p.done
	})
}
