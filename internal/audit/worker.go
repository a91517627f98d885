package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and hands them to the
// publisher. Decisions emit into the channel without waiting on storage.
type Worker struct {
	publisher *Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(publisher *Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Emit(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.WarnContext(ctx, "audit append failed", "error", err)
				}
			}
		}
	}
}
