package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleID aceita o event_id como string ou inteiro no JSON
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("event_id must be a string or integer")
	}
	*f = FlexibleID(strconv.FormatInt(n, 10))
	return nil
}

// PlaceBetRequest é o corpo do POST /bets
type PlaceBetRequest struct {
	EventID FlexibleID  `json:"event_id"`
	Amount  json.Number `json:"amount"`
}

// AmountCents converte o valor decimal em centavos, exigindo valor positivo
// com no máximo duas casas decimais
func (r PlaceBetRequest) AmountCents() (int64, error) {
	s := r.Amount.String()
	if s == "" {
		return 0, errors.New("amount is required")
	}
	if strings.HasPrefix(s, "-") {
		return 0, errors.New("amount must be positive")
	}

	intPart, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, errors.New("amount must have at most two decimal places")
	}
	if intPart == "" {
		intPart = "0"
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %v", r.Amount)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount: %v", r.Amount)
	}

	total := whole*100 + cents
	if total <= 0 {
		return 0, errors.New("amount must be positive")
	}
	return total, nil
}
