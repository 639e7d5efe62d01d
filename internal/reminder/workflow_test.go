package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/testsuite"

	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/fanout"
	"github.com/Tanmoy095/loadboard/internal/models"
)

func TestWorkflowStopsOnceDepositIsPaid(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	env.OnActivity(a.DepositStillPending, mock.Anything, "load-1").Return(true, nil).Twice()
	env.OnActivity(a.DepositStillPending, mock.Anything, "load-1").Return(false, nil).Once()
	env.OnActivity(a.SendDepositReminder, mock.Anything, mock.Anything).Return(nil).Twice()

	env.ExecuteWorkflow(DepositReminderWorkflow, Params{LoadID: "load-1", ShipperID: "shipper-1", Interval: 6 * time.Hour, MaxReminders: 5})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var sent int
	require.NoError(t, env.GetWorkflowResult(&sent))
	assert.Equal(t, 2, sent)
	env.AssertExpectations(t)
}

func TestWorkflowSendsAtMostMaxReminders(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	a := &Activities{}
	env.RegisterActivity(a)

	var attempts []Reminder
	env.OnActivity(a.DepositStillPending, mock.Anything, "load-2").Return(true, nil)
	env.OnActivity(a.SendDepositReminder, mock.Anything, mock.Anything).Return(
		func(_ context.Context, r Reminder) error {
			attempts = append(attempts, r)
			return nil
		})

	env.ExecuteWorkflow(DepositReminderWorkflow, Params{LoadID: "load-2", ShipperID: "shipper-1", Interval: time.Hour, MaxReminders: 3})

	require.NoError(t, env.GetWorkflowError())
	var sent int
	require.NoError(t, env.GetWorkflowResult(&sent))
	assert.Equal(t, 3, sent)
	require.Len(t, attempts, 3)
	assert.Equal(t, 1, attempts[0].Attempt)
	assert.False(t, attempts[1].Final)
	assert.True(t, attempts[2].Final)
}

type stubShipments struct {
	shipments map[string]*models.Shipment
}

func (s *stubShipments) CreateShipment(context.Context, *models.Shipment) error { return nil }

func (s *stubShipments) GetShipment(_ context.Context, id string) (*models.Shipment, error) {
	sh, ok := s.shipments[id]
	if !ok {
		return nil, domainErrors.NotFound("shipment", id)
	}
	return sh, nil
}

func (s *stubShipments) UpdateShipment(context.Context, *models.Shipment, ...models.ShipmentStatus) error {
	return nil
}

func (s *stubShipments) AddBidder(context.Context, string, string) (bool, error) { return false, nil }

type captureNotifier struct {
	mu      sync.Mutex
	userID  string
	event   string
	payload any
}

func (c *captureNotifier) SendToUser(_ context.Context, userID, event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID, c.event, c.payload = userID, event, payload
	return nil
}

func (c *captureNotifier) Broadcast(context.Context, string, any) error { return nil }

func TestActivities(t *testing.T) {
	notifier := &captureNotifier{}
	acts := &Activities{
		Shipments: &stubShipments{shipments: map[string]*models.Shipment{
			"pending": {ID: "pending", Status: models.StatusPendingDeposit},
			"paid":    {ID: "paid", Status: models.StatusReadyForPickup},
		}},
		Notifier: notifier,
	}

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(acts)

	for id, want := range map[string]bool{"pending": true, "paid": false, "gone": false} {
		val, err := env.ExecuteActivity(acts.DepositStillPending, id)
		require.NoError(t, err, id)
		var got bool
		require.NoError(t, val.Get(&got))
		assert.Equal(t, want, got, id)
	}

	_, err := env.ExecuteActivity(acts.SendDepositReminder, Reminder{LoadID: "pending", ShipperID: "shipper-9", Attempt: 1})
	require.NoError(t, err)
	assert.Equal(t, "shipper-9", notifier.userID)
	assert.Equal(t, fanout.EventDepositReminder, notifier.event)
	payload, ok := notifier.payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pending", payload["load_id"])
}

func TestSchedulerStartsWorkflowPerLoad(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	run.On("GetRunID").Return("run-1")
	c.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.ID == "deposit-reminder-load-7" && o.TaskQueue == TaskQueue
		}),
		mock.Anything,
		Params{LoadID: "load-7", ShipperID: "shipper-1", Interval: time.Hour, MaxReminders: 2},
	).Return(run, nil).Once()

	s := NewTemporalScheduler(c, time.Hour, 2, nil)
	require.NoError(t, s.ScheduleDepositReminder(context.Background(), "load-7", "shipper-1"))
	c.AssertExpectations(t)
}

func TestSchedulerDisabledWithZeroMax(t *testing.T) {
	c := &mocks.Client{}
	s := NewTemporalScheduler(c, time.Hour, 0, nil)
	require.NoError(t, s.ScheduleDepositReminder(context.Background(), "load-7", "shipper-1"))
	assert.Empty(t, c.Calls)
}
