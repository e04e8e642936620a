package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// EventCache é a visão do cache de snapshots usada pelo caminho read-through
type EventCache interface {
	Get(ctx context.Context, eventID string) (events.Event, bool, error)
	Set(ctx context.Context, eventID string, ev events.Event) error
}

// Provider é a visão do cliente do line-provider
type Provider interface {
	GetEvent(ctx context.Context, eventID string) (events.Event, error)
	ListEvents(ctx context.Context) ([]events.Event, error)
}

// Resolver implementa o caminho read-through: cache primeiro, line-provider
// no miss, populando o cache com o que buscou. Falha no cache não bloqueia a
// resolução — é logada e a busca segue direto no provider.
type Resolver struct {
	Log      *zap.Logger
	Cache    EventCache
	Provider Provider
}

// New retorna um resolver read-through sobre cache e provider
func New(log *zap.Logger, cache EventCache, provider Provider) *Resolver {
	return &Resolver{Log: log, Cache: cache, Provider: provider}
}

// Resolve busca o snapshot de um evento; lineprovider.ErrNotFound quando o
// evento não existe nem no cache nem no upstream
func (r *Resolver) Resolve(ctx context.Context, eventID string) (events.Event, error) {
	cached, ok, err := r.Cache.Get(ctx, eventID)
	if err != nil {
		r.Log.Warn("event cache read failed", zap.String("event_id", eventID), zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	ev, err := r.Provider.GetEvent(ctx, eventID)
	if err != nil {
		return events.Event{}, err
	}

	if err := r.Cache.Set(ctx, eventID, ev); err != nil {
		r.Log.Warn("event cache write failed", zap.String("event_id", eventID), zap.Error(err))
	}
	return ev, nil
}

// LoadActive busca a lista de eventos ativos no line-provider e popula o
// cache; usado no boot pra aquecer o cache. Retorna quantos eventos carregou.
func (r *Resolver) LoadActive(ctx context.Context) (int, error) {
	evs, err := r.Provider.ListEvents(ctx)
	if err != nil {
		return 0, err
	}

	for _, ev := range evs {
		if ev.EventID == "" {
			r.Log.Info("skipping event with no id")
			continue
		}
		if err := r.Cache.Set(ctx, ev.EventID, ev); err != nil {
			r.Log.Warn("event cache write failed", zap.String("event_id", ev.EventID), zap.Error(err))
		}
	}
	return len(evs), nil
}
