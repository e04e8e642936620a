package placement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/bet-maker/lineprovider"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

type fakeLedger struct {
	created []string
	nextID  string
	err     error
}

func (f *fakeLedger) CreatePending(_ context.Context, eventID string, amountCents int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, fmt.Sprintf("%s:%d", eventID, amountCents))
	return f.nextID, nil
}

type fakeResolver struct {
	ev    events.Event
	err   error
	calls int
}

func (f *fakeResolver) Resolve(context.Context, string) (events.Event, error) {
	f.calls++
	if f.err != nil {
		return events.Event{}, f.err
	}
	return f.ev, nil
}

var fixedNow = time.Unix(1_000_000, 0)

func newGate(ledger *fakeLedger, res *fakeResolver) *Gate {
	g := New(zap.NewNop(), ledger, res)
	g.Now = func() time.Time { return fixedNow }
	return g
}

func eventWithDeadline(deadline int64) events.Event {
	return events.Event{EventID: "1", Deadline: events.Some(deadline)}
}

func TestPlaceBet_Succeeds(t *testing.T) {
	ledger := &fakeLedger{nextID: "bet-123"}
	res := &fakeResolver{ev: eventWithDeadline(fixedNow.Unix() + 600)}
	g := newGate(ledger, res)

	id, err := g.PlaceBet(context.Background(), "1", 1000)
	require.NoError(t, err)

	assert.Equal(t, "bet-123", id)
	assert.Equal(t, []string{"1:1000"}, ledger.created)
}

func TestPlaceBet_DeadlinePassed(t *testing.T) {
	ledger := &fakeLedger{}
	res := &fakeResolver{ev: eventWithDeadline(fixedNow.Unix())}
	g := newGate(ledger, res)

	_, err := g.PlaceBet(context.Background(), "1", 1000)
	assert.ErrorIs(t, err, ErrDeadlinePassed, "deadline at current time is already closed")
	assert.Empty(t, ledger.created)
}

func TestPlaceBet_EventWithoutDeadline(t *testing.T) {
	g := newGate(&fakeLedger{}, &fakeResolver{ev: events.Event{EventID: "1"}})

	_, err := g.PlaceBet(context.Background(), "1", 1000)
	assert.ErrorIs(t, err, ErrInvalidDeadline)
}

func TestPlaceBet_UnknownEvent(t *testing.T) {
	res := &fakeResolver{err: fmt.Errorf("event 9: %w", lineprovider.ErrNotFound)}
	g := newGate(&fakeLedger{}, res)

	_, err := g.PlaceBet(context.Background(), "9", 1000)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestPlaceBet_UpstreamFailureIsNotNotFound(t *testing.T) {
	res := &fakeResolver{err: errors.New("connect refused")}
	g := newGate(&fakeLedger{}, res)

	_, err := g.PlaceBet(context.Background(), "1", 1000)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEventNotFound)
}

func TestPlaceBet_InvalidAmount(t *testing.T) {
	res := &fakeResolver{ev: eventWithDeadline(fixedNow.Unix() + 600)}
	g := newGate(&fakeLedger{}, res)

	_, err := g.PlaceBet(context.Background(), "1", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = g.PlaceBet(context.Background(), "1", -100)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.Zero(t, res.calls, "amount is validated before reaching for the event")
}
