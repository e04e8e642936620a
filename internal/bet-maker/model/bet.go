package model

import (
	"time"

	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// BetStatus é o ciclo de vida de uma aposta. PENDING é o estado inicial;
// WON e LOST são terminais e nunca mudam depois de atingidos.
type BetStatus string

const (
	StatusPending BetStatus = "PENDING"
	StatusWon     BetStatus = "WON"
	StatusLost    BetStatus = "LOST"
)

// Terminal informa se o status encerra a aposta
func (s BetStatus) Terminal() bool { return s == StatusWon || s == StatusLost }

// Bet é o modelo persistido no Postgres. Valor monetário em centavos.
type Bet struct {
	ID          string
	EventID     string
	AmountCents int64
	Status      BetStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StatusForTerminal mapeia o estado terminal de um evento para o status da
// aposta: FINISHED_WIN vira WON, qualquer outro estado terminal vira LOST.
func StatusForTerminal(s events.State) BetStatus {
	if s == events.StateFinishedWin {
		return StatusWon
	}
	return StatusLost
}
