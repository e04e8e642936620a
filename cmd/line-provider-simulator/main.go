package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/shared/config"
	sharedkafka "github.com/radieske/bet-maker/internal/shared/kafka"
	"github.com/radieske/bet-maker/internal/shared/logger"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// Métricas Prometheus do simulador
var (
	updatesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "line_provider_updates_published_total",
		Help: "Atualizações de evento publicadas no Kafka",
	})
)

// catalog guarda os eventos simulados em memória, protegido por mutex porque
// o PUT /event e os GETs rodam concorrentes
type catalog struct {
	mu     sync.RWMutex
	events map[string]events.Event
}

func newCatalog(seed []events.Event) *catalog {
	m := make(map[string]events.Event, len(seed))
	for _, ev := range seed {
		m[ev.EventID] = ev
	}
	return &catalog{events: m}
}

func (c *catalog) get(id string) (events.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ev, ok := c.events[id]
	return ev, ok
}

func (c *catalog) list() []events.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]events.Event, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev)
	}
	return out
}

// upsert mescla a atualização no evento existente (ou cria) e devolve o merge
func (c *catalog) upsert(upd events.Event) events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.events[upd.EventID]
	if !ok {
		cur = events.Event{EventID: upd.EventID}
	}
	merged := cur.Merge(upd)
	c.events[upd.EventID] = merged
	return merged
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(updatesPublished)

	// Catálogo inicial de eventos simulados, com deadlines no futuro
	now := time.Now().Unix()
	cat := newCatalog([]events.Event{
		{EventID: "1", Coefficient: events.Some[events.Decimal]("1.20"), Deadline: events.Some(now + 600), State: events.Some(events.StateNew)},
		{EventID: "2", Coefficient: events.Some[events.Decimal]("1.15"), Deadline: events.Some(now + 60), State: events.Some(events.StateNew)},
		{EventID: "3", Coefficient: events.Some[events.Decimal]("1.67"), Deadline: events.Some(now + 90), State: events.Some(events.StateNew)},
	})

	// Kafka producer: publica cada mudança de evento no tópico line_provider
	writer := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicEventUpdates)
	defer writer.Close()

	mux := http.NewServeMux()

	// GET /events — lista de eventos ativos
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, cat.list())
	})

	// GET /events/{id} — evento único ou 404
	mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/events/")
		ev, ok := cat.get(id)
		if !ok {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	})

	// PUT /event — aplica uma atualização parcial e publica no Kafka
	mux.HandleFunc("/event", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var upd events.Event
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil || upd.EventID == "" {
			http.Error(w, "invalid event payload", http.StatusBadRequest)
			return
		}
		if state, ok := upd.State.Get(); ok && !state.Known() {
			http.Error(w, "invalid event state", http.StatusBadRequest)
			return
		}

		cat.upsert(upd)

		// No wire vai só a atualização parcial, não o snapshot mesclado:
		// é o bet-maker quem faz o merge do lado dele
		payload, _ := json.Marshal(upd)
		if err := sharedkafka.WriteJSON(r.Context(), writer, upd.EventID, payload); err != nil {
			log.Error("publish event update", zap.String("event_id", upd.EventID), zap.Error(err))
			http.Error(w, "publish failed", http.StatusInternalServerError)
			return
		}
		updatesPublished.Inc()

		log.Info("event update published", zap.String("event_id", upd.EventID))
		writeJSON(w, http.StatusOK, map[string]string{"message": "event update published"})
	})

	// Servidor de métricas
	go func() {
		mmux := http.NewServeMux()
		mmux.Handle("/metrics", promhttp.Handler())
		mmux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mmux)
	}()

	addr := ":" + cfg.HTTPPort
	log.Info("line-provider-simulator listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("http", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
