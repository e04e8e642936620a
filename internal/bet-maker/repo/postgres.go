package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/bet-maker/internal/bet-maker/model"
)

// Postgres implementa a persistência de apostas em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreatePending insere uma nova aposta com status PENDING e retorna o id
func (p *Postgres) CreatePending(ctx context.Context, eventID string, amountCents int64) (string, error) {
	id := uuid.NewString()
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id, event_id, amount_cents, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'PENDING', NOW(), NOW())`,
		id, eventID, amountCents,
	)
	if err != nil {
		return "", fmt.Errorf("insert bet: %w", err)
	}
	return id, nil
}

// ListPage retorna uma página de apostas (id e status) e o total de registros
func (p *Postgres) ListPage(ctx context.Context, page, size int) ([]model.Bet, int, error) {
	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bets`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bets: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event_id, status
		FROM bets
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2`,
		(page-1)*size, size,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var out []model.Bet
	for rows.Next() {
		var b model.Bet
		if err := rows.Scan(&b.ID, &b.EventID, &b.Status); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// SettleByEvent atualiza todas as apostas PENDING de um evento para o status
// terminal informado, num único statement atômico. Apostas já terminais nunca
// mudam; reaplicar a mesma atualização afeta zero linhas.
func (p *Postgres) SettleByEvent(ctx context.Context, eventID string, status model.BetStatus) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets
		SET status = $2, updated_at = NOW()
		WHERE event_id = $1 AND status = 'PENDING'`,
		eventID, status,
	)
	if err != nil {
		return 0, fmt.Errorf("settle bets for event %s: %w", eventID, err)
	}
	return res.RowsAffected()
}

// SettleOne atualiza uma única aposta PENDING para o status terminal;
// retorna false quando a aposta já não estava mais pendente
func (p *Postgres) SettleOne(ctx context.Context, betID string, status model.BetStatus) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`,
		betID, status,
	)
	if err != nil {
		return false, fmt.Errorf("settle bet %s: %w", betID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// FindStalePending retorna apostas ainda PENDING criadas antes do corte,
// candidatas à varredura de reconciliação
func (p *Postgres) FindStalePending(ctx context.Context, olderThan time.Time) ([]model.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, event_id, status, created_at
		FROM bets
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at`,
		olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("find stale pending bets: %w", err)
	}
	defer rows.Close()

	var out []model.Bet
	for rows.Next() {
		var b model.Bet
		if err := rows.Scan(&b.ID, &b.EventID, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
