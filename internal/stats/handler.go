package stats

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
	"github.com/stockroom-pos/stockroom-pos/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
)

// Handler wires HTTP endpoints for statistics.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs stats handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers stats routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleOverview)
	r.Get("/inventory", h.handleInventory)
}

type valuationResponse struct {
	Retail decimal.Decimal `json:"retail"`
	Cost   decimal.Decimal `json:"cost"`
	Profit decimal.Decimal `json:"profit"`
}

func toValuationResponse(v ledger.ValuationTotals) valuationResponse {
	return valuationResponse{Retail: v.Retail, Cost: v.Cost, Profit: v.Profit()}
}

type creditorResponse struct {
	Username string          `json:"username"`
	Credit   decimal.Decimal `json:"credit"`
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), shared.WarehouseFromContext(r.Context()))
	if err != nil {
		h.logger.Error("stats overview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	creditors := make([]creditorResponse, 0, len(overview.TopCreditors))
	for _, u := range overview.TopCreditors {
		creditors = append(creditors, creditorResponse{Username: u.Username, Credit: u.Credit})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"global":        toValuationResponse(overview.Global),
		"local":         toValuationResponse(overview.Local),
		"credit_sum":    overview.CreditSum,
		"top_creditors": creditors,
	})
}

type inventoryRowResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     []int64         `json:"stock"`
	Total     int64           `json:"total"`
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Inventory(r.Context())
	if err != nil {
		h.logger.Error("inventory report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	warehouses := make([]string, 0, len(report.Warehouses))
	for _, wh := range report.Warehouses {
		warehouses = append(warehouses, wh.Name)
	}
	rows := make([]inventoryRowResponse, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, inventoryRowResponse{
			ProductID: row.Product.ID,
			Name:      row.Product.Name,
			Price:     row.Product.Price,
			Stock:     row.Stock,
			Total:     row.Total,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"warehouses": warehouses,
		"rows":       rows,
		"totals":     toValuationResponse(report.Totals),
	})
}
