package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/networth-labs/tracker/internal/api/middleware"
	"github.com/networth-labs/tracker/internal/domain"
	"github.com/networth-labs/tracker/internal/logger"
	"github.com/networth-labs/tracker/internal/positions"
	"github.com/networth-labs/tracker/internal/store"
)

// PositionsHandler handles position endpoints.
type PositionsHandler struct {
	service   *positions.Service
	positions store.PositionStore
}

// NewPositionsHandler creates a positions handler.
func NewPositionsHandler(service *positions.Service, positionStore store.PositionStore) *PositionsHandler {
	return &PositionsHandler{service: service, positions: positionStore}
}

// List handles GET /api/positions.
func (h *PositionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	list, err := h.positions.ListPositions(ctx, userID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list positions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list positions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"positions": list,
		"count":     len(list),
	})
}

type createPositionRequest struct {
	Kind          string          `json:"kind"`
	Subtype       string          `json:"subtype"`
	Name          string          `json:"name"`
	Institution   string          `json:"institution"`
	AccountNumber string          `json:"account_number"`
	Value         decimal.Decimal `json:"value"`
	CurrencyCode  string          `json:"currency_code"`

	CreditLimit    *decimal.Decimal `json:"credit_limit"`
	MonthlyPayment *decimal.Decimal `json:"monthly_payment"`
	PaymentDueDay  *int             `json:"payment_due_day"`
}

// Create handles POST /api/positions, the manual entry path.
func (h *PositionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pos, err := h.service.Create(ctx, &positions.CreateInput{
		UserID:         userID,
		Kind:           domain.PositionKind(strings.ToUpper(req.Kind)),
		Subtype:        strings.ToUpper(req.Subtype),
		Name:           req.Name,
		Institution:    req.Institution,
		AccountNumber:  req.AccountNumber,
		Value:          req.Value,
		CurrencyCode:   req.CurrencyCode,
		CreditLimit:    req.CreditLimit,
		MonthlyPayment: req.MonthlyPayment,
		PaymentDueDay:  req.PaymentDueDay,
	})
	switch {
	case errors.Is(err, positions.ErrInvalidInput):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, "A position for this account already exists")
		return
	case err != nil:
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to create position")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create position")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, pos)
}

// SetValue handles POST /api/positions/{id}/value.
func (h *PositionsHandler) SetValue(w http.ResponseWriter, r *http.Request, positionID string) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadOwned(w, r, positionID, userID); !ok {
		return
	}

	var req struct {
		Value decimal.Decimal `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pos, err := h.service.SetValue(ctx, positionID, req.Value)
	switch {
	case errors.Is(err, positions.ErrInvalidInput):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Position not found")
		return
	case err != nil:
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("position_id", positionID).Msg("Failed to revalue position")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update position")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, pos)
}

// History handles GET /api/positions/{id}/history, newest entries first.
func (h *PositionsHandler) History(w http.ResponseWriter, r *http.Request, positionID string) {
	ctx := r.Context()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if _, ok := h.loadOwned(w, r, positionID, userID); !ok {
		return
	}

	entries, err := h.positions.ListHistory(ctx, positionID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("position_id", positionID).Msg("Failed to list history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": entries,
		"count":   len(entries),
	})
}

// loadOwned fetches a position and hides other users' records behind 404.
func (h *PositionsHandler) loadOwned(w http.ResponseWriter, r *http.Request, positionID, userID string) (*domain.Position, bool) {
	pos, err := h.positions.GetPosition(r.Context(), positionID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Position not found")
		return nil, false
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("position_id", positionID).Msg("Failed to load position")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load position")
		return nil, false
	}
	if pos.UserID != userID {
		middleware.WriteError(w, http.StatusNotFound, "Position not found")
		return nil, false
	}
	return pos, true
}
