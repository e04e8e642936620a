package placement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/bet-maker/lineprovider"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

var (
	// ErrEventNotFound indica que o evento não existe no cache nem no upstream
	ErrEventNotFound = errors.New("event not found")
	// ErrDeadlinePassed indica que o prazo de aposta do evento já venceu
	ErrDeadlinePassed = errors.New("betting deadline has passed")
	// ErrInvalidAmount indica valor de aposta não positivo
	ErrInvalidAmount = errors.New("invalid bet amount")
	// ErrInvalidDeadline indica evento sem deadline utilizável
	ErrInvalidDeadline = errors.New("invalid deadline in event data")
)

// Ledger é a visão do repositório usada pelo gate
type Ledger interface {
	CreatePending(ctx context.Context, eventID string, amountCents int64) (string, error)
}

// EventResolver é o caminho read-through de busca de eventos
type EventResolver interface {
	Resolve(ctx context.Context, eventID string) (events.Event, error)
}

// Gate é o único ponto de admissão de novas apostas: valida o valor e o
// deadline do evento antes de criar a linha PENDING no ledger. O deadline é
// checado contra o snapshot mais recente disponível — cache defasado a favor
// do cliente é uma janela de risco aceita.
type Gate struct {
	Log    *zap.Logger
	Ledger Ledger
	Events EventResolver

	// Now permite fixar o relógio nos testes
	Now func() time.Time
}

// New retorna um gate de admissão de apostas
func New(log *zap.Logger, ledger Ledger, ev EventResolver) *Gate {
	return &Gate{Log: log, Ledger: ledger, Events: ev, Now: time.Now}
}

// PlaceBet valida e cria uma aposta, retornando o id gerado
func (g *Gate) PlaceBet(ctx context.Context, eventID string, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", ErrInvalidAmount
	}

	ev, err := g.Events.Resolve(ctx, eventID)
	if err != nil {
		if errors.Is(err, lineprovider.ErrNotFound) {
			return "", fmt.Errorf("event %s: %w", eventID, ErrEventNotFound)
		}
		return "", fmt.Errorf("fetch event %s: %w", eventID, err)
	}

	deadline, ok := ev.Deadline.Get()
	if !ok {
		return "", fmt.Errorf("event %s: %w", eventID, ErrInvalidDeadline)
	}
	if deadline <= g.Now().Unix() {
		return "", fmt.Errorf("event %s: %w", eventID, ErrDeadlinePassed)
	}

	id, err := g.Ledger.CreatePending(ctx, eventID, amountCents)
	if err != nil {
		return "", fmt.Errorf("create bet: %w", err)
	}

	g.Log.Info("bet placed",
		zap.String("bet_id", id),
		zap.String("event_id", eventID),
		zap.Int64("amount_cents", amountCents))
	return id, nil
}
