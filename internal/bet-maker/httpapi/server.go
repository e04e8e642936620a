package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/bet-maker/internal/bet-maker/dto"
	"github.com/radieske/bet-maker/internal/bet-maker/engine"
	"github.com/radieske/bet-maker/internal/bet-maker/model"
	"github.com/radieske/bet-maker/internal/bet-maker/placement"
	"github.com/radieske/bet-maker/pkg/contracts/events"
)

// API expõe pro resto da plataforma as quatro operações do core: criar aposta,
// listar apostas, aplicar atualização de evento e listar eventos futuros —
// além do gatilho manual da varredura de reconciliação.
type API struct {
	Log *zap.Logger

	Gate interface {
		PlaceBet(ctx context.Context, eventID string, amountCents int64) (string, error)
	}
	Bets interface {
		ListPage(ctx context.Context, page, size int) ([]model.Bet, int, error)
	}
	Engine interface {
		Apply(ctx context.Context, upd events.Event) (engine.Result, error)
	}
	Events interface {
		ListUpcoming(ctx context.Context, now time.Time) ([]events.Event, error)
	}
	Sweep func(ctx context.Context) error
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/bets", a.placeBet)
	r.Get("/bets", a.listBets)
	r.Get("/bets/check", a.checkBets)
	r.Put("/events/{id}", a.updateEvent)
	r.Get("/events", a.listEvents)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if req.EventID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "event_id is required"})
		return
	}
	cents, err := req.AmountCents()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	id, err := a.Gate.PlaceBet(r.Context(), string(req.EventID), cents)
	if err != nil {
		switch {
		case errors.Is(err, placement.ErrEventNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "event not found"})
		case errors.Is(err, placement.ErrDeadlinePassed):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "betting deadline has passed"})
		case errors.Is(err, placement.ErrInvalidAmount):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid bet amount"})
		default:
			a.Log.Error("place bet failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to create bet"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{ID: id})
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 50)
	if page < 1 || size < 1 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "page and size must be positive"})
		return
	}

	bets, total, err := a.Bets.ListPage(r.Context(), page, size)
	if err != nil {
		a.Log.Error("list bets failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get bets"})
		return
	}

	items := make([]dto.BetItem, 0, len(bets))
	for _, b := range bets {
		items = append(items, dto.BetItem{ID: b.ID, Status: string(b.Status)})
	}
	writeJSON(w, http.StatusOK, dto.PaginatedBets{Items: items, Total: total, Page: page, Size: size})
}

func (a *API) checkBets(w http.ResponseWriter, r *http.Request) {
	if err := a.Sweep(r.Context()); err != nil {
		a.Log.Error("manual sweep failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "reconciliation failed"})
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "reconciliation complete"})
}

func (a *API) updateEvent(w http.ResponseWriter, r *http.Request) {
	var upd events.Event
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return
	}
	if upd.EventID == "" {
		upd.EventID = chi.URLParam(r, "id")
	}
	if upd.EventID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "event_id is required"})
		return
	}
	if state, ok := upd.State.Get(); ok && !state.Known() {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid event state"})
		return
	}

	res, err := a.Engine.Apply(r.Context(), upd)
	if err != nil {
		a.Log.Error("apply event update failed", zap.String("event_id", upd.EventID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to update event status"})
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: res.Message})
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := a.Events.ListUpcoming(r.Context(), time.Now())
	if err != nil {
		a.Log.Error("list events failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to retrieve events"})
		return
	}
	if evs == nil {
		evs = []events.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
