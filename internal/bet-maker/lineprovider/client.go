package lineprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// ErrNotFound indica que o line-provider não conhece o evento
var ErrNotFound = errors.New("event not found")

// Client consome o contrato HTTP do line-provider (price feed):
// GET /events/{id} e GET /events
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New retorna um cliente com timeout limitado por chamada
func New(base string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// GetEvent busca um único evento; 404 vira ErrNotFound
func (c *Client) GetEvent(ctx context.Context, eventID string) (events.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/events/"+eventID, nil)
	if err != nil {
		return events.Event{}, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return events.Event{}, fmt.Errorf("line provider get event: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return events.Event{}, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	if res.StatusCode >= 300 {
		return events.Event{}, fmt.Errorf("line provider http %d", res.StatusCode)
	}

	var ev events.Event
	if err := json.NewDecoder(res.Body).Decode(&ev); err != nil {
		return events.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}

// ListEvents busca a lista de eventos ativos
func (c *Client) ListEvents(ctx context.Context) ([]events.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/events", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("line provider list events: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("line provider http %d", res.StatusCode)
	}

	var evs []events.Event
	if err := json.NewDecoder(res.Body).Decode(&evs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return evs, nil
}
