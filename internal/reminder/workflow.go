// Package reminder nags shippers whose committed loads are still waiting for
// the deposit. Reminders run as a Temporal workflow so they survive restarts.
package reminder

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const TaskQueue = "LOADBOARD_REMINDERS"

// Params configures one reminder run.
type Params struct {
	LoadID       string        `json:"load_id"`
	ShipperID    string        `json:"shipper_id"`
	Interval     time.Duration `json:"interval"`
	MaxReminders int           `json:"max_reminders"`
}

// Reminder is one reminder sent to the shipper.
type Reminder struct {
	LoadID    string `json:"load_id"`
	ShipperID string `json:"shipper_id"`
	Attempt   int    `json:"attempt"`
	Final     bool   `json:"final"`
}

func WorkflowID(loadID string) string { return "deposit-reminder-" + loadID }

// DepositReminderWorkflow sleeps Interval, then reminds the shipper if the
// load is still Pending Deposit, up to MaxReminders times. It returns the
// number of reminders sent.
func DepositReminderWorkflow(ctx workflow.Context, p Params) (int, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})
	logger := workflow.GetLogger(ctx)

	var a *Activities
	sent := 0
	for sent < p.MaxReminders {
		if err := workflow.Sleep(ctx, p.Interval); err != nil {
			return sent, err
		}

		var pending bool
		if err := workflow.ExecuteActivity(ctx, a.DepositStillPending, p.LoadID).Get(ctx, &pending); err != nil {
			return sent, err
		}
		if !pending {
			logger.Info("deposit settled, reminders stopped", "load_id", p.LoadID, "sent", sent)
			return sent, nil
		}

		r := Reminder{LoadID: p.LoadID, ShipperID: p.ShipperID, Attempt: sent + 1, Final: sent+1 == p.MaxReminders}
		if err := workflow.ExecuteActivity(ctx, a.SendDepositReminder, r).Get(ctx, nil); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
