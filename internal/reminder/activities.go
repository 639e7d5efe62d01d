package reminder

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/fanout"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/store"
)

// Activities are the side effects of DepositReminderWorkflow.
type Activities struct {
	Shipments store.ShipmentStore
	Notifier  fanout.Notifier
}

// DepositStillPending reports whether the load is still Pending Deposit. A
// load that no longer exists needs no reminder.
func (a *Activities) DepositStillPending(ctx context.Context, loadID string) (bool, error) {
	sh, err := a.Shipments.GetShipment(ctx, loadID)
	if errors.Is(err, domainErrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", loadID, err)
	}
	return sh.Status == models.StatusPendingDeposit, nil
}

func (a *Activities) SendDepositReminder(ctx context.Context, r Reminder) error {
	payload := map[string]any{
		"load_id": r.LoadID,
		"attempt": r.Attempt,
		"final":   r.Final,
		"message": "Your driver has committed. Pay the deposit to secure the pickup.",
	}
	return a.Notifier.SendToUser(ctx, r.ShipperID, fanout.EventDepositReminder, payload)
}
