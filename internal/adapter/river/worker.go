package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// StatusChangedWorker records committed status changes in the audit log.
type StatusChangedWorker struct {
	river.WorkerDefaults[StatusChangedArgs]

	logger *slog.Logger
}

// NewStatusChangedWorker creates a worker that writes to logger, or to the
// default slog logger when logger is nil.
func NewStatusChangedWorker(logger *slog.Logger) *StatusChangedWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusChangedWorker{logger: logger}
}

// Work processes a single status-change job.
func (w *StatusChangedWorker) Work(ctx context.Context, job *river.Job[StatusChangedArgs]) error {
	w.logger.InfoContext(ctx, "order status changed",
		"order_id", job.Args.OrderID,
		"from", job.Args.From,
		"to", job.Args.To,
		"actor", job.Args.Actor,
		"note", job.Args.Note,
		"changed_at", job.Args.ChangedAt,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
