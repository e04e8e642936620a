package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/bet-maker/model"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// Ledger é a visão do repositório usada pela varredura
type Ledger interface {
	FindStalePending(ctx context.Context, olderThan time.Time) ([]model.Bet, error)
	SettleOne(ctx context.Context, betID string, status model.BetStatus) (bool, error)
}

// EventResolver é o caminho read-through de busca de eventos
type EventResolver interface {
	Resolve(ctx context.Context, eventID string) (events.Event, error)
}

// Reconciler varre periodicamente as apostas presas em PENDING além do limite
// de idade e tenta resolvê-las buscando o estado do evento pelo caminho
// read-through. Cobre mensagem perdida, aposta criada depois do settlement e
// upstream degradado: o tempo máximo preso em PENDING fica limitado a
// intervalo + idade.
type Reconciler struct {
	Log    *zap.Logger
	Ledger Ledger
	Events EventResolver

	PendingAge   time.Duration // idade mínima da aposta pra entrar na varredura
	FetchTimeout time.Duration // timeout por busca de evento

	OnResolved func() // métricas (counter++)
	OnSkipped  func() // métricas

	cron *cron.Cron
}

// New retorna um reconciler ainda parado
func New(log *zap.Logger, ledger Ledger, ev EventResolver, pendingAge, fetchTimeout time.Duration) *Reconciler {
	return &Reconciler{
		Log:          log,
		Ledger:       ledger,
		Events:       ev,
		PendingAge:   pendingAge,
		FetchTimeout: fetchTimeout,
		cron:         cron.New(),
	}
}

// Start agenda a varredura no intervalo fixo informado
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) error {
	_, err := r.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.Log.Error("reconcile sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reconcile sweep: %w", err)
	}
	r.cron.Start()
	r.Log.Info("reconciler started", zap.Duration("interval", interval))
	return nil
}

// Stop para o agendamento e espera a varredura em andamento terminar,
// pra não abandonar a aposta corrente no meio
func (r *Reconciler) Stop() {
	<-r.cron.Stop().Done()
	r.Log.Info("reconciler stopped")
}

// RunOnce executa uma varredura completa. Falha ao buscar ou liquidar uma
// aposta é logada e a varredura segue pra próxima: um evento inacessível não
// pode travar o resto.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-r.PendingAge)
	bets, err := r.Ledger.FindStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find stale pending bets: %w", err)
	}
	r.Log.Info("reconcile sweep", zap.Int("stale_pending", len(bets)))

	for _, bet := range bets {
		// Cancelamento observado entre apostas, nunca no meio de uma
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fctx, cancel := context.WithTimeout(ctx, r.FetchTimeout)
		ev, err := r.Events.Resolve(fctx, bet.EventID)
		cancel()
		if err != nil {
			r.Log.Warn("event fetch failed, skipping bet",
				zap.String("bet_id", bet.ID),
				zap.String("event_id", bet.EventID),
				zap.Error(err))
			if r.OnSkipped != nil {
				r.OnSkipped()
			}
			continue
		}

		state, ok := ev.State.Get()
		if !ok || !state.Terminal() {
			continue
		}

		target := model.StatusForTerminal(state)
		updated, err := r.Ledger.SettleOne(ctx, bet.ID, target)
		if err != nil {
			r.Log.Warn("bet settle failed, skipping",
				zap.String("bet_id", bet.ID), zap.Error(err))
			if r.OnSkipped != nil {
				r.OnSkipped()
			}
			continue
		}
		if updated {
			r.Log.Info("stale bet resolved",
				zap.String("bet_id", bet.ID),
				zap.String("status", string(target)))
			if r.OnResolved != nil {
				r.OnResolved()
			}
		}
	}
	return nil
}
