package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/bet-maker/model"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

type fakeCache struct {
	m      map[string]events.Event
	getErr error
	setErr error
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[string]events.Event{}} }

func (f *fakeCache) Get(_ context.Context, id string) (events.Event, bool, error) {
	if f.getErr != nil {
		return events.Event{}, false, f.getErr
	}
	ev, ok := f.m[id]
	return ev, ok, nil
}

func (f *fakeCache) Set(_ context.Context, id string, ev events.Event) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.m[id] = ev
	return nil
}

type fakeLedger struct {
	bets map[string]*model.Bet
	fail error
}

func newFakeLedger(bets ...*model.Bet) *fakeLedger {
	f := &fakeLedger{bets: map[string]*model.Bet{}}
	for _, b := range bets {
		f.bets[b.ID] = b
	}
	return f
}

// SettleByEvent espelha o predicado do repositório real: só apostas ainda
// PENDING do evento mudam de status
func (f *fakeLedger) SettleByEvent(_ context.Context, eventID string, status model.BetStatus) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	var n int64
	for _, b := range f.bets {
		if b.EventID == eventID && b.Status == model.StatusPending && b.Status != status {
			b.Status = status
			n++
		}
	}
	return n, nil
}

func newEngine(cache *fakeCache, ledger *fakeLedger) *Engine {
	return New(zap.NewNop(), cache, ledger)
}

func pending(id, eventID string) *model.Bet {
	return &model.Bet{ID: id, EventID: eventID, AmountCents: 1000, Status: model.StatusPending}
}

func TestApply_NoStateChange(t *testing.T) {
	cache := newFakeCache()
	cache.m["1"] = events.Event{
		EventID:     "1",
		Coefficient: events.Some[events.Decimal]("1.2"),
		Deadline:    events.Some[int64](1000),
	}
	ledger := newFakeLedger(pending("b1", "1"))
	e := newEngine(cache, ledger)

	res, err := e.Apply(context.Background(), events.Event{EventID: "1"})
	require.NoError(t, err)

	assert.Equal(t, "no state change", res.Message)
	assert.Zero(t, res.Updated)
	assert.Equal(t, model.StatusPending, ledger.bets["b1"].Status)

	// merge ainda acontece: campos cacheados sobrevivem
	c, ok := cache.m["1"].Coefficient.Get()
	require.True(t, ok)
	assert.Equal(t, events.Decimal("1.2"), c)
}

func TestApply_NewStateLeavesBetsAlone(t *testing.T) {
	cache := newFakeCache()
	ledger := newFakeLedger(pending("b1", "1"))
	e := newEngine(cache, ledger)

	res, err := e.Apply(context.Background(), events.Event{
		EventID: "1",
		State:   events.Some(events.StateNew),
	})
	require.NoError(t, err)

	assert.Equal(t, "no wagers to update", res.Message)
	assert.Equal(t, model.StatusPending, ledger.bets["b1"].Status)
}

func TestApply_PartialMergeKeepsCachedFields(t *testing.T) {
	cache := newFakeCache()
	cache.m["1"] = events.Event{
		EventID:     "1",
		Coefficient: events.Some[events.Decimal]("1.2"),
		Deadline:    events.Some[int64](1000),
	}
	e := newEngine(cache, newFakeLedger())

	_, err := e.Apply(context.Background(), events.Event{
		EventID: "1",
		State:   events.Some(events.StateNew),
	})
	require.NoError(t, err)

	snap := cache.m["1"]
	c, ok := snap.Coefficient.Get()
	require.True(t, ok)
	assert.Equal(t, events.Decimal("1.2"), c)

	d, ok := snap.Deadline.Get()
	require.True(t, ok)
	assert.Equal(t, int64(1000), d)

	s, ok := snap.State.Get()
	require.True(t, ok)
	assert.Equal(t, events.StateNew, s)
}

func TestApply_FanOutSettlesOnlyMatchingEvent(t *testing.T) {
	ledger := newFakeLedger(
		pending("b1", "1"),
		pending("b2", "1"),
		pending("b3", "1"),
		pending("b4", "2"),
	)
	e := newEngine(newFakeCache(), ledger)

	res, err := e.Apply(context.Background(), events.Event{
		EventID: "1",
		State:   events.Some(events.StateFinishedWin),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.Updated)
	assert.Equal(t, model.StatusWon, ledger.bets["b1"].Status)
	assert.Equal(t, model.StatusWon, ledger.bets["b2"].Status)
	assert.Equal(t, model.StatusWon, ledger.bets["b3"].Status)
	assert.Equal(t, model.StatusPending, ledger.bets["b4"].Status, "bet on another event must be untouched")
}

func TestApply_IdempotentOnRedelivery(t *testing.T) {
	ledger := newFakeLedger(pending("b1", "1"))
	e := newEngine(newFakeCache(), ledger)

	upd := events.Event{EventID: "1", State: events.Some(events.StateFinishedLose)}

	first, err := e.Apply(context.Background(), upd)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Updated)

	second, err := e.Apply(context.Background(), upd)
	require.NoError(t, err)
	assert.Zero(t, second.Updated, "redelivery must be a no-op")
	assert.Equal(t, model.StatusLost, ledger.bets["b1"].Status)
}

func TestApply_TerminalStatusNeverChanges(t *testing.T) {
	ledger := newFakeLedger(pending("b1", "1"))
	e := newEngine(newFakeCache(), ledger)

	_, err := e.Apply(context.Background(), events.Event{
		EventID: "1", State: events.Some(events.StateFinishedWin),
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusWon, ledger.bets["b1"].Status)

	// atualização terminal contraditória não regride o status
	res, err := e.Apply(context.Background(), events.Event{
		EventID: "1", State: events.Some(events.StateFinishedLose),
	})
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	assert.Equal(t, model.StatusWon, ledger.bets["b1"].Status)
}

func TestApply_CacheFailureDoesNotBlockSettlement(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	ledger := newFakeLedger(pending("b1", "1"))
	e := newEngine(cache, ledger)

	res, err := e.Apply(context.Background(), events.Event{
		EventID: "1",
		State:   events.Some(events.StateFinishedWin),
	})
	require.NoError(t, err, "cache failure must not abort settlement")
	assert.Equal(t, int64(1), res.Updated)
	assert.Equal(t, model.StatusWon, ledger.bets["b1"].Status)
}

func TestApply_LedgerFailureSurfacesSettlementFailed(t *testing.T) {
	ledger := newFakeLedger(pending("b1", "1"))
	ledger.fail = errors.New("pg down")
	e := newEngine(newFakeCache(), ledger)

	_, err := e.Apply(context.Background(), events.Event{
		EventID: "1",
		State:   events.Some(events.StateFinishedWin),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSettlementFailed)
	assert.Equal(t, model.StatusPending, ledger.bets["b1"].Status)
}

func TestApply_UnknownTerminalStateMapsToLost(t *testing.T) {
	ledger := newFakeLedger(pending("b1", "1"))
	e := newEngine(newFakeCache(), ledger)

	_, err := e.Apply(context.Background(), events.Event{
		EventID: "1",
		State:   events.Some(events.State(7)),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusLost, ledger.bets["b1"].Status)
}
