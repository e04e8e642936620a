package eventcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// Cache guarda o snapshot mesclado de cada evento no Redis, uma chave por
// event_id. Entradas não expiram: a frescura é limitada pela varredura de
// reconciliação, não pelo cache.
type Cache struct{ R *redis.Client }

// New retorna um cache de eventos sobre o cliente Redis informado
func New(r *redis.Client) *Cache { return &Cache{R: r} }

// key gera a chave Redis do snapshot de um evento
func key(eventID string) string { return "event:" + eventID }

// Get busca o snapshot de um evento; retorna false sem erro no cache miss
func (c *Cache) Get(ctx context.Context, eventID string) (events.Event, bool, error) {
	b, err := c.R.Get(ctx, key(eventID)).Bytes()
	if err == redis.Nil {
		return events.Event{}, false, nil
	}
	if err != nil {
		return events.Event{}, false, err
	}
	var ev events.Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return events.Event{}, false, err
	}
	return ev, true, nil
}

// Set grava o snapshot completo de um evento, sem TTL
func (c *Cache) Set(ctx context.Context, eventID string, ev events.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key(eventID), b, 0).Err()
}

// ListUpcoming varre as chaves "event:*" e retorna os eventos com deadline
// conhecido e ainda no futuro. Snapshots ilegíveis são ignorados.
func (c *Cache) ListUpcoming(ctx context.Context, now time.Time) ([]events.Event, error) {
	var out []events.Event
	iter := c.R.Scan(ctx, 0, key("*"), 0).Iterator()
	for iter.Next(ctx) {
		b, err := c.R.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var ev events.Event
		if err := json.Unmarshal(b, &ev); err != nil {
			continue
		}
		if deadline, ok := ev.Deadline.Get(); ok && deadline > now.Unix() {
			out = append(out, ev)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
