package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/bet-maker/model"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

type fakeLedger struct {
	bets      map[string]*model.Bet
	settleErr map[string]error
}

func newLedger(bets ...*model.Bet) *fakeLedger {
	f := &fakeLedger{bets: map[string]*model.Bet{}, settleErr: map[string]error{}}
	for _, b := range bets {
		f.bets[b.ID] = b
	}
	return f
}

func (f *fakeLedger) FindStalePending(_ context.Context, olderThan time.Time) ([]model.Bet, error) {
	var out []model.Bet
	for _, b := range f.bets {
		if b.Status == model.StatusPending && b.CreatedAt.Before(olderThan) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeLedger) SettleOne(_ context.Context, betID string, status model.BetStatus) (bool, error) {
	if err := f.settleErr[betID]; err != nil {
		return false, err
	}
	b, ok := f.bets[betID]
	if !ok || b.Status != model.StatusPending {
		return false, nil
	}
	b.Status = status
	return true, nil
}

type fakeResolver struct {
	events map[string]events.Event
	errs   map[string]error
	calls  []string
}

func (f *fakeResolver) Resolve(_ context.Context, eventID string) (events.Event, error) {
	f.calls = append(f.calls, eventID)
	if err := f.errs[eventID]; err != nil {
		return events.Event{}, err
	}
	return f.events[eventID], nil
}

func bet(id, eventID string, age time.Duration) *model.Bet {
	return &model.Bet{
		ID:        id,
		EventID:   eventID,
		Status:    model.StatusPending,
		CreatedAt: time.Now().Add(-age),
	}
}

func newReconciler(ledger *fakeLedger, res *fakeResolver) *Reconciler {
	return New(zap.NewNop(), ledger, res, 24*time.Hour, time.Second)
}

func TestRunOnce_ResolvesStalePendingBet(t *testing.T) {
	ledger := newLedger(
		bet("old", "1", 25*time.Hour),
		bet("fresh", "1", time.Hour),
	)
	res := &fakeResolver{events: map[string]events.Event{
		"1": {EventID: "1", State: events.Some(events.StateFinishedLose)},
	}}
	r := newReconciler(ledger, res)

	require.NoError(t, r.RunOnce(context.Background()))

	assert.Equal(t, model.StatusLost, ledger.bets["old"].Status)
	assert.Equal(t, model.StatusPending, ledger.bets["fresh"].Status, "bet under the age threshold must be untouched")
}

func TestRunOnce_NonTerminalEventLeavesBetPending(t *testing.T) {
	ledger := newLedger(bet("old", "1", 25*time.Hour))
	res := &fakeResolver{events: map[string]events.Event{
		"1": {EventID: "1", State: events.Some(events.StateNew)},
	}}
	r := newReconciler(ledger, res)

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Equal(t, model.StatusPending, ledger.bets["old"].Status)
}

func TestRunOnce_EventWithoutStateLeavesBetPending(t *testing.T) {
	ledger := newLedger(bet("old", "1", 25*time.Hour))
	res := &fakeResolver{events: map[string]events.Event{
		"1": {EventID: "1", Deadline: events.Some[int64](1000)},
	}}
	r := newReconciler(ledger, res)

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Equal(t, model.StatusPending, ledger.bets["old"].Status)
}

func TestRunOnce_FetchFailureSkipsBetAndContinues(t *testing.T) {
	ledger := newLedger(
		bet("a", "unreachable", 25*time.Hour),
		bet("b", "2", 26*time.Hour),
	)
	res := &fakeResolver{
		events: map[string]events.Event{
			"2": {EventID: "2", State: events.Some(events.StateFinishedWin)},
		},
		errs: map[string]error{"unreachable": errors.New("timeout")},
	}
	r := newReconciler(ledger, res)

	var skips int
	r.OnSkipped = func() { skips++ }

	require.NoError(t, r.RunOnce(context.Background()), "one unreachable event must not abort the sweep")

	assert.Equal(t, model.StatusPending, ledger.bets["a"].Status)
	assert.Equal(t, model.StatusWon, ledger.bets["b"].Status)
	assert.Equal(t, 1, skips)
	assert.Len(t, res.calls, 2, "both bets must be attempted")
}

func TestRunOnce_SettleFailureSkipsBetAndContinues(t *testing.T) {
	ledger := newLedger(
		bet("a", "1", 25*time.Hour),
		bet("b", "1", 26*time.Hour),
	)
	ledger.settleErr["a"] = errors.New("pg down")
	res := &fakeResolver{events: map[string]events.Event{
		"1": {EventID: "1", State: events.Some(events.StateFinishedWin)},
	}}
	r := newReconciler(ledger, res)

	require.NoError(t, r.RunOnce(context.Background()))

	assert.Equal(t, model.StatusPending, ledger.bets["a"].Status)
	assert.Equal(t, model.StatusWon, ledger.bets["b"].Status)
}

func TestRunOnce_HonorsCancellationBetweenBets(t *testing.T) {
	ledger := newLedger(bet("a", "1", 25*time.Hour))
	res := &fakeResolver{events: map[string]events.Event{}}
	r := newReconciler(ledger, res)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.calls, "no fetch after cancellation")
}
