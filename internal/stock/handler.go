package stock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
	"github.com/stockroom-pos/stockroom-pos/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
)

// PricePort updates the retail price of a product after an import.
type PricePort interface {
	SetPrice(ctx context.Context, productID int64, price decimal.Decimal) error
}

// Handler wires HTTP endpoints for stock keeping.
type Handler struct {
	logger  *slog.Logger
	service *Service
	prices  PricePort
}

// NewHandler constructs stock handler.
func NewHandler(logger *slog.Logger, service *Service, prices PricePort) *Handler {
	return &Handler{logger: logger, service: service, prices: prices}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/import", h.handleImport)
	r.Post("/discard", h.handleDiscard)
	r.Post("/correction", h.handleCorrection)
	r.Post("/transfer", h.handleTransfer)
	r.Post("/reset", h.handleReset)
}

func actorFromRequest(r *http.Request) (int64, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		return 0, shared.ErrNotLoggedIn
	}
	return sess.User(), nil
}

type importRequest struct {
	ProductID int64           `json:"product_id" validate:"required"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	SellPrice decimal.Decimal `json:"sell_price"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req importRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	input := ImportInput{
		ActorID:     actorID,
		ProductID:   req.ProductID,
		WarehouseID: shared.WarehouseFromContext(r.Context()),
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		SellPrice:   req.SellPrice,
	}
	if err := h.service.Import(r.Context(), input); err != nil {
		respondError(w, err)
		return
	}
	if err := h.prices.SetPrice(r.Context(), req.ProductID, req.SellPrice); err != nil {
		h.logger.Error("set retail price after import",
			slog.Int64("product_id", req.ProductID), slog.Any("error", err))
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type discardRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req discardRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	input := DiscardInput{
		ActorID:     actorID,
		ProductID:   req.ProductID,
		WarehouseID: shared.WarehouseFromContext(r.Context()),
		Quantity:    req.Quantity,
	}
	if err := h.service.Discard(r.Context(), input); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type correctionRequest struct {
	ProductID       int64 `json:"product_id" validate:"required"`
	CountedQuantity int64 `json:"counted_quantity" validate:"gte=0"`
}

func (h *Handler) handleCorrection(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req correctionRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	input := CorrectionInput{
		ActorID:         actorID,
		ProductID:       req.ProductID,
		WarehouseID:     shared.WarehouseFromContext(r.Context()),
		CountedQuantity: req.CountedQuantity,
	}
	if err := h.service.Correction(r.Context(), input); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	ProductID     int64 `json:"product_id" validate:"required"`
	ToWarehouseID int64 `json:"to_warehouse_id" validate:"required"`
	Quantity      int64 `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req transferRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	input := TransferInput{
		ActorID:         actorID,
		ProductID:       req.ProductID,
		FromWarehouseID: shared.WarehouseFromContext(r.Context()),
		ToWarehouseID:   req.ToWarehouseID,
		Quantity:        req.Quantity,
	}
	if err := h.service.Transfer(r.Context(), input); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	actorID, err := actorFromRequest(r)
	if err != nil {
		respondError(w, err)
		return
	}
	diff, err := h.service.ResetValuation(r.Context(), actorID)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"price_diff": diff})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotLoggedIn):
		httpx.Problem(w, http.StatusUnauthorized, "Not Logged In", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ledger.ErrTxConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "please retry the operation")
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrSameWarehouse):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
