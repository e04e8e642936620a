package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/bet-maker/engine"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// State é o estado do ciclo de vida do consumer
type State int32

const (
	StateStopped State = iota
	StateConnecting
	StateConsuming
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConsuming:
		return "consuming"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "stopped"
	}
}

// Settler aplica uma atualização de evento (implementado pelo engine)
type Settler interface {
	Apply(ctx context.Context, upd events.Event) (engine.Result, error)
}

// Reader é a visão do reader Kafka usada pelo consumer. Offsets são
// confirmados manualmente via CommitMessages.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer consome o tópico de atualizações de eventos e entrega cada
// mensagem ao engine de settlement. O offset só é confirmado depois que o
// Apply termina sem erro; mensagem ilegível ou settlement com falha é logada
// e pulada sem commit — a varredura de reconciliação é a rede de segurança
// pra esses caminhos.
//
// É o objeto de ciclo de vida do processo: Start valida a conexão (fatal no
// boot se falhar), Run roda o loop até o contexto cancelar, State expõe a
// situação atual pro healthcheck.
type Consumer struct {
	Log     *zap.Logger
	Settler Settler

	// NewReader recria o reader após uma falha de transporte
	NewReader func() Reader
	// Dial valida a conectividade com o broker no boot
	Dial func(ctx context.Context) error
	// Backoff é a espera fixa antes de cada reconexão
	Backoff time.Duration

	OnConsumed func()              // métricas (counter++)
	OnSettled  func(updated int64) // métricas
	OnError    func(stage string)  // métricas por fase

	state  atomic.Int32
	reader Reader
}

// State retorna o estado atual do ciclo de vida
func (c *Consumer) State() State { return State(c.state.Load()) }

func (c *Consumer) setState(s State) { c.state.Store(int32(s)) }

// Start valida a conexão com o broker e abre o reader. Erro aqui é fatal:
// o processo não deve subir sem conseguir falar com o broker.
func (c *Consumer) Start(ctx context.Context) error {
	c.setState(StateConnecting)
	if c.Dial != nil {
		if err := c.Dial(ctx); err != nil {
			c.setState(StateStopped)
			return fmt.Errorf("connect broker: %w", err)
		}
	}
	c.reader = c.NewReader()
	c.setState(StateConsuming)
	return nil
}

// Run roda o loop de consumo até o contexto ser cancelado. O cancelamento é
// cooperativo: é observado entre iterações, nunca no meio de um commit.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		_ = c.reader.Close()
		c.setState(StateStopped)
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Falha de transporte: espera o backoff e recria o reader
			c.Log.Warn("kafka fetch failed", zap.Error(err))
			if c.OnError != nil {
				c.OnError("fetch")
			}
			if !c.reconnect(ctx) {
				return ctx.Err()
			}
			continue
		}

		if c.OnConsumed != nil {
			c.OnConsumed()
		}

		var upd events.Event
		if err := json.Unmarshal(m.Value, &upd); err != nil || upd.EventID == "" {
			// Mensagem ilegível: pula sem commit, a reconciliação cobre
			c.Log.Warn("invalid event update message",
				zap.Int64("offset", m.Offset), zap.Error(err))
			if c.OnError != nil {
				c.OnError("decode")
			}
			continue
		}

		res, err := c.Settler.Apply(ctx, upd)
		if err != nil {
			// Sem commit: dentro desta execução a mensagem não volta,
			// então a reconciliação é quem garante o resultado
			c.Log.Error("settlement failed",
				zap.String("event_id", upd.EventID), zap.Error(err))
			if c.OnError != nil {
				c.OnError("apply")
			}
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("offset commit failed", zap.Error(err))
			if c.OnError != nil {
				c.OnError("commit")
			}
			if !c.reconnect(ctx) {
				return ctx.Err()
			}
			continue
		}

		c.Log.Info("event update processed",
			zap.String("event_id", res.EventID),
			zap.String("message", res.Message),
			zap.Int64("updated", res.Updated))
		if c.OnSettled != nil {
			c.OnSettled(res.Updated)
		}
	}
}

// reconnect espera o backoff fixo, fecha o reader atual e abre um novo.
// Retorna false se o contexto cancelou durante a espera.
func (c *Consumer) reconnect(ctx context.Context) bool {
	c.setState(StateReconnecting)

	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.Backoff):
	}

	_ = c.reader.Close()
	c.reader = c.NewReader()
	c.setState(StateConsuming)
	c.Log.Info("kafka reader reconnected")
	return true
}
