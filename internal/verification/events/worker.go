package events

import (
	"context"
	"log/slog"
)

// Worker drains an inbox into a Sink until the inbox is closed or ctx ends.
// Delivery failures are logged and the event is dropped.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.sink.Write(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to deliver event",
					"type", event.Type,
					"submission_id", event.SubmissionID,
					"error", err,
				)
			}
		}
	}
}
