package credit

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
	"github.com/stockroom-pos/stockroom-pos/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
)

// Handler wires HTTP endpoints for the credit engine.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs credit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/change", h.handleChange)
	r.Post("/transfer", h.handleTransfer)
	r.Get("/total", h.handleTotal)
}

type changeRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message"`
}

func (h *Handler) handleChange(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		respondError(w, shared.ErrNotLoggedIn)
		return
	}
	var req changeRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	input := ChangeInput{UserID: sess.User(), Amount: req.Amount, Message: req.Message}
	if err := h.service.Change(r.Context(), input); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	ReceiverID int64           `json:"receiver_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Message    string          `json:"message"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		respondError(w, shared.ErrNotLoggedIn)
		return
	}
	var req transferRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	input := TransferInput{
		SenderID:   sess.User(),
		ReceiverID: req.ReceiverID,
		Amount:     req.Amount,
		Message:    req.Message,
	}
	if err := h.service.Transfer(r.Context(), input); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalCredit(r.Context())
	if err != nil {
		h.logger.Error("total credit", slog.Any("error", err))
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"total": total})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotLoggedIn):
		httpx.Problem(w, http.StatusUnauthorized, "Not Logged In", err.Error())
	case errors.Is(err, ledger.ErrUserNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientCredit):
		httpx.Problem(w, http.StatusConflict, "Insufficient Credit", err.Error())
	case errors.Is(err, ledger.ErrTxConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "please retry the operation")
	case errors.Is(err, ErrGuestCredit), errors.Is(err, ErrSelfTransfer), errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
