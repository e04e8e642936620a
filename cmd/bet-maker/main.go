package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	bmconsumer "github.com/radieske/bet-maker/internal/bet-maker/consumer"
	"github.com/radieske/bet-maker/internal/bet-maker/engine"
	"github.com/radieske/bet-maker/internal/bet-maker/eventcache"
	"github.com/radieske/bet-maker/internal/bet-maker/httpapi"
	"github.com/radieske/bet-maker/internal/bet-maker/lineprovider"
	"github.com/radieske/bet-maker/internal/bet-maker/placement"
	"github.com/radieske/bet-maker/internal/bet-maker/reconciler"
	"github.com/radieske/bet-maker/internal/bet-maker/repo"
	"github.com/radieske/bet-maker/internal/bet-maker/resolver"
	sharedcache "github.com/radieske/bet-maker/internal/shared/cache"
	"github.com/radieske/bet-maker/internal/shared/config"
	"github.com/radieske/bet-maker/internal/shared/db"
	sharedkafka "github.com/radieske/bet-maker/internal/shared/kafka"
	"github.com/radieske/bet-maker/internal/shared/logger"
	"github.com/radieske/bet-maker/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres, Redis e o cliente do line-provider
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	ledger := repo.NewPostgres(pg)
	if err := ledger.EnsureSchema(ctx); err != nil {
		log.Fatal("ensure schema", zap.Error(err))
	}

	ecache := eventcache.New(redisClient)
	provider := lineprovider.New(cfg.LineProviderURL, cfg.FetchTimeout)
	events := resolver.New(log, ecache, provider)
	settler := engine.New(log, ecache, ledger)
	gate := placement.New(log, ledger, events)

	// Aquecimento do cache: carrega os eventos ativos do line-provider.
	// Falha aqui não derruba o boot, a reconciliação cobre depois.
	if count, err := events.LoadActive(ctx); err != nil {
		log.Warn("event cache warmup failed", zap.Error(err))
	} else {
		log.Info("event cache warmed", zap.Int("events", count))
	}

	// Métricas Prometheus do pipeline de settlement
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_maker_messages_consumed_total", Help: "mensagens consumidas do tópico de eventos"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_maker_bets_settled_total", Help: "apostas liquidadas via stream"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bet_maker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	reconciled := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_maker_bets_reconciled_total", Help: "apostas resolvidas pela varredura"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "bet_maker_reconcile_skipped_total", Help: "apostas puladas na varredura"})
	prometheus.MustRegister(consumed, settled, errorsBy, reconciled, skipped)

	// Stream consumer: falha na conexão inicial é fatal no boot
	cons := &bmconsumer.Consumer{
		Log:     log,
		Settler: settler,
		NewReader: func() bmconsumer.Reader {
			return sharedkafka.NewReader(cfg.KafkaBrokers, cfg.TopicEventUpdates, cfg.ConsumerGroup)
		},
		Dial: func(ctx context.Context) error {
			return sharedkafka.Ping(ctx, cfg.KafkaBrokers)
		},
		Backoff:    cfg.ConsumerBackoff,
		OnConsumed: func() { consumed.Inc() },
		OnSettled:  func(n int64) { settled.Add(float64(n)) },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}
	if err := cons.Start(ctx); err != nil {
		log.Fatal("consumer start", zap.Error(err))
	}
	go func() {
		if err := cons.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("consumer stopped with error", zap.Error(err))
		}
	}()

	// Varredura periódica de apostas presas em PENDING
	rec := reconciler.New(log, ledger, events, cfg.PendingAge, cfg.FetchTimeout)
	rec.OnResolved = func() { reconciled.Inc() }
	rec.OnSkipped = func() { skipped.Inc() }
	if err := rec.Start(ctx, cfg.ReconcileInterval); err != nil {
		log.Fatal("reconciler start", zap.Error(err))
	}

	// Servidor de métricas e health: saudável = pg + redis + consumer vivo
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		if cons.State() == bmconsumer.StateStopped {
			return errors.New("consumer stopped")
		}
		return nil
	})
	log.Info("metrics/health listening", zap.String("addr", ":"+cfg.MetricsPort))

	// API pública
	api := &httpapi.API{
		Log:    log,
		Gate:   gate,
		Bets:   ledger,
		Engine: settler,
		Events: ecache,
		Sweep:  rec.RunOnce,
	}
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shCancel()
		_ = apiSrv.Shutdown(shCtx)
		_ = metricsSrv.Shutdown(shCtx)
		rec.Stop() // espera a varredura em andamento terminar
	}()

	log.Info("bet-maker listening", zap.String("addr", ":"+cfg.HTTPPort))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("bet-maker stopped")
}
