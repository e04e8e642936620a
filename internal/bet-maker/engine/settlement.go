package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/bet-maker/model"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// ErrSettlementFailed indica falha na transação do ledger; quem chamou decide
// o retry (o consumer deixa a mensagem sem commit, a reconciliação cobre o resto)
var ErrSettlementFailed = errors.New("settlement failed")

// EventCache é a visão do cache usada pelo engine
type EventCache interface {
	Get(ctx context.Context, eventID string) (events.Event, bool, error)
	Set(ctx context.Context, eventID string, ev events.Event) error
}

// Ledger é a visão do repositório de apostas usada pelo engine
type Ledger interface {
	SettleByEvent(ctx context.Context, eventID string, status model.BetStatus) (int64, error)
}

// Result resume o efeito de uma atualização de evento
type Result struct {
	EventID string
	Message string
	Updated int64
}

// Engine aplica mudanças de estado de eventos: mescla a atualização parcial no
// snapshot cacheado e, quando o estado é terminal, liquida todas as apostas
// pendentes do evento de uma vez.
type Engine struct {
	Log    *zap.Logger
	Cache  EventCache
	Ledger Ledger
}

// New retorna um engine de settlement
func New(log *zap.Logger, cache EventCache, ledger Ledger) *Engine {
	return &Engine{Log: log, Cache: cache, Ledger: ledger}
}

// Apply processa uma atualização parcial de evento.
//
// O merge com o cache é best-effort: falha de leitura ou escrita no Redis é
// logada e o settlement segue com o melhor estado disponível — disponibilidade
// ganha de frescura aqui. Já a escrita no ledger é a parte com garantia:
// o predicado "ainda PENDING" torna a reaplicação da mesma atualização um
// no-op, o que dá efeito exatamente-uma-vez sob entrega at-least-once.
func (e *Engine) Apply(ctx context.Context, upd events.Event) (Result, error) {
	cached, ok, err := e.Cache.Get(ctx, upd.EventID)
	if err != nil {
		e.Log.Warn("event cache read failed", zap.String("event_id", upd.EventID), zap.Error(err))
	}
	if !ok {
		cached = events.Event{EventID: upd.EventID}
	}

	merged := cached.Merge(upd)
	if err := e.Cache.Set(ctx, upd.EventID, merged); err != nil {
		e.Log.Warn("event cache write failed", zap.String("event_id", upd.EventID), zap.Error(err))
	}

	state, ok := upd.State.Get()
	if !ok {
		return Result{EventID: upd.EventID, Message: "no state change"}, nil
	}
	if state == events.StateNew {
		return Result{EventID: upd.EventID, Message: "no wagers to update"}, nil
	}

	target := model.StatusForTerminal(state)
	n, err := e.Ledger.SettleByEvent(ctx, upd.EventID, target)
	if err != nil {
		return Result{}, fmt.Errorf("%w: event %s: %v", ErrSettlementFailed, upd.EventID, err)
	}
	if n == 0 {
		e.Log.Info("no bets to settle", zap.String("event_id", upd.EventID), zap.Stringer("state", state))
	}

	return Result{
		EventID: upd.EventID,
		Message: fmt.Sprintf("updated %d bets", n),
		Updated: n,
	}, nil
}
