package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// TemporalScheduler starts one DepositReminderWorkflow per committed load.
type TemporalScheduler struct {
	client       client.Client
	interval     time.Duration
	maxReminders int
	logger       *slog.Logger
}

func NewTemporalScheduler(c client.Client, interval time.Duration, maxReminders int, logger *slog.Logger) *TemporalScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemporalScheduler{client: c, interval: interval, maxReminders: maxReminders, logger: logger}
}

func (s *TemporalScheduler) ScheduleDepositReminder(ctx context.Context, loadID, shipperID string) error {
	if s.maxReminders == 0 {
		return nil
	}
	opts := client.StartWorkflowOptions{
		ID:        WorkflowID(loadID),
		TaskQueue: TaskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, DepositReminderWorkflow, Params{
		LoadID:       loadID,
		ShipperID:    shipperID,
		Interval:     s.interval,
		MaxReminders: s.maxReminders,
	})
	if err != nil {
		return fmt.Errorf("start deposit reminder for %s: %w", loadID, err)
	}
	s.logger.Info("deposit reminder scheduled", "load_id", loadID, "workflow_id", opts.ID, "run_id", run.GetRunID())
	return nil
}

// NoopScheduler is used when Temporal is not configured.
type NoopScheduler struct{}

func (NoopScheduler) ScheduleDepositReminder(context.Context, string, string) error { return nil }

// NewWorker registers the reminder workflow and its activities on TaskQueue.
func NewWorker(c client.Client, acts *Activities) worker.Worker {
	w := worker.New(c, TaskQueue, worker.Options{})
	w.RegisterWorkflow(DepositReminderWorkflow)
	w.RegisterActivity(acts)
	return w
}
