package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/log"
)

// Summarizer aggregates the store for every window filter.
type Summarizer interface {
	Summaries(ctx context.Context) ([]core.WindowSummary, error)
}

// EventConsumer delivers change events until its context is done.
type EventConsumer interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// SummaryWorker keeps the ALL/WEEK/MONTH totals current and logs them
// whenever the store changes or the refresh interval elapses.
type SummaryWorker struct {
	summarizer Summarizer
	logger     *log.Logger
}

func NewSummaryWorker(summarizer Summarizer, logger *log.Logger) *SummaryWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SummaryWorker{
		summarizer: summarizer,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// HandleExpenseEvent refreshes the summaries after a change event.
// Returning an error makes the consumer requeue the event.
func (w *SummaryWorker) HandleExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	w.logger.InfoContext(ctx, "Expense changed",
		log.FieldEventKind, string(ev.Kind),
		log.FieldExpenseID, ev.ID)
	return w.Refresh(ctx)
}

// Refresh re-lists the store and logs one line per window.
func (w *SummaryWorker) Refresh(ctx context.Context) error {
	sums, err := w.summarizer.Summaries(ctx)
	if err != nil {
		return fmt.Errorf("summarize expenses: %w", err)
	}

	for _, s := range sums {
		fields := log.NewFields().
			WithSummary(string(s.Window), s.Total, len(s.Expenses)).
			WithOperation(log.OpSummary)
		w.logger.InfoContext(ctx, "Window summary", fields.ToSlice()...)
	}
	return nil
}

// RunPeriodic refreshes on every tick until ctx is done. A failed
// refresh is logged and retried on the next tick.
func (w *SummaryWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic summary failed", log.FieldError, err)
			}
		}
	}
}

// Run performs a startup refresh, then runs the event consumer (when
// configured) and the periodic refresh side by side. It returns when ctx
// is cancelled or either side fails.
func (w *SummaryWorker) Run(ctx context.Context, consumer EventConsumer, interval time.Duration) error {
	if err := w.Refresh(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup summary failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeExpenseEvents(gctx, w.HandleExpenseEvent)
		})
	} else {
		w.logger.InfoContext(ctx, "No AMQP consumer configured, relying on periodic refresh")
	}

	g.Go(func() error {
		return w.RunPeriodic(gctx, interval)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
