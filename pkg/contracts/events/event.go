package events

import (
	"encoding/json"
	"fmt"
)

// State é o estado de um evento no line-provider
type State int

const (
	StateNew          State = 1
	StateFinishedWin  State = 2
	StateFinishedLose State = 3
)

// Known informa se o valor é um dos estados publicados pelo line-provider
func (s State) Known() bool {
	return s == StateNew || s == StateFinishedWin || s == StateFinishedLose
}

// Terminal informa se o estado encerra o evento
func (s State) Terminal() bool {
	return s == StateFinishedWin || s == StateFinishedLose
}

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateFinishedWin:
		return "FINISHED_WIN"
	case StateFinishedLose:
		return "FINISHED_LOSE"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// Decimal carrega um valor decimal como texto, sem arredondar.
// No wire o coeficiente chega como string ("1.45") ou como número.
type Decimal string

func (d *Decimal) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = Decimal(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decimal must be a string or number: %w", err)
	}
	*d = Decimal(n.String())
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(d))
}

// Event é o payload publicado no tópico "line_provider" e também o snapshot
// guardado no cache. Só event_id é obrigatório; os demais campos são parciais
// e um campo ausente nunca sobrescreve o valor já conhecido.
type Event struct {
	EventID     string            `json:"event_id"`
	Coefficient Optional[Decimal] `json:"coefficient,omitzero"`
	Deadline    Optional[int64]   `json:"deadline,omitzero"`
	State       Optional[State]   `json:"state,omitzero"`
}

// Merge aplica uma atualização parcial sobre o snapshot: campo presente na
// atualização (mesmo null) sobrescreve, campo ausente preserva o cacheado.
func (e Event) Merge(upd Event) Event {
	out := e
	if upd.EventID != "" {
		out.EventID = upd.EventID
	}
	if upd.Coefficient.Present() {
		out.Coefficient = upd.Coefficient
	}
	if upd.Deadline.Present() {
		out.Deadline = upd.Deadline
	}
	if upd.State.Present() {
		out.State = upd.State
	}
	return out
}
