// Package users exposes the kiosk account endpoints: who can log in,
// who is logged in, and what they bought.
package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
	"github.com/stockroom-pos/stockroom-pos/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
	"github.com/stockroom-pos/stockroom-pos/internal/stats"
)

// Handler wires HTTP endpoints for user selection and history.
type Handler struct {
	logger   *slog.Logger
	store    ledger.Store
	sessions *shared.SessionManager
	stats    *stats.Service
}

// NewHandler constructs users handler.
func NewHandler(logger *slog.Logger, store ledger.Store, sessions *shared.SessionManager, statsSvc *stats.Service) *Handler {
	return &Handler{logger: logger, store: store, sessions: sessions, stats: statsSvc}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.Get("/me/history", h.handleHistory)
}

type userResponse struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Credit   decimal.Decimal `json:"credit"`
	IsGuest  bool            `json:"is_guest"`
}

func toUserResponse(u ledger.UserAccount) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Credit: u.Credit, IsGuest: u.IsGuest}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		respondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type loginRequest struct {
	UserID  int64  `json:"user_id"`
	Barcode string `json:"barcode"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		respondError(w, shared.ErrNotLoggedIn)
		return
	}
	var req loginRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	var (
		user ledger.UserAccount
		err  error
	)
	switch {
	case req.Barcode != "":
		user, err = h.store.GetUserByBarcode(r.Context(), req.Barcode)
	case req.UserID != 0:
		user, err = h.store.GetUser(r.Context(), req.UserID)
	default:
		respondError(w, httpx.ErrValidation)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	sess.SetUser(user.ID)
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		respondError(w, shared.ErrNotLoggedIn)
		return
	}
	user, err := h.store.GetUser(r.Context(), sess.User())
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		respondError(w, shared.ErrNotLoggedIn)
		return
	}
	entries, err := h.stats.History(r.Context(), sess.User())
	if err != nil {
		h.logger.Error("user history", slog.Int64("user_id", sess.User()), slog.Any("error", err))
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotLoggedIn):
		httpx.Problem(w, http.StatusUnauthorized, "Not Logged In", err.Error())
	case errors.Is(err, ledger.ErrUserNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
