package repo

import (
	"context"
	"fmt"
)

// Statements executados no boot. CREATE IF NOT EXISTS mantém o boot idempotente
// em múltiplas instâncias.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS bets (
		id           UUID PRIMARY KEY,
		event_id     TEXT NOT NULL,
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		status       TEXT NOT NULL DEFAULT 'PENDING',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_event_id ON bets (event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bets_status_created ON bets (status, created_at)`,
}

// EnsureSchema cria a tabela de apostas e os índices usados pelo settlement
// (por event_id) e pela varredura de pendentes (por status + created_at)
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	for _, q := range schema {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
