package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
)

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/search", h.handleSearch)
	r.Post("/scan", h.handleScan)
	r.Get("/tags", h.handleTags)
	r.Get("/warehouses", h.handleWarehouses)
	r.Post("/products", h.handleCreateProduct)
	r.Put("/products/{productID}/price", h.handleSetPrice)
}

type productResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Barcode     string          `json:"barcode"`
	Price       decimal.Decimal `json:"price"`
	IsUnlimited bool            `json:"is_unlimited"`
	Tags        []string        `json:"tags,omitempty"`
}

type rankedProductResponse struct {
	productResponse
	LocalQuantity int64      `json:"local_quantity"`
	TotalQuantity int64      `json:"total_quantity"`
	Bucket        int        `json:"bucket"`
	LastPurchase  *time.Time `json:"last_purchase,omitempty"`
}

func toProductResponse(p Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Barcode:     p.Barcode,
		Price:       p.Price,
		IsUnlimited: p.IsUnlimited,
		Tags:        p.Tags,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	warehouseID := shared.WarehouseFromContext(r.Context())
	var userID int64
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		userID = sess.User()
	}
	tags := r.URL.Query()["tag"]

	ranked, err := h.service.RankedCatalog(r.Context(), warehouseID, userID, tags)
	if err != nil {
		h.logger.Error("rank catalog", slog.Any("error", err))
		respondError(w, err)
		return
	}
	out := make([]rankedProductResponse, 0, len(ranked))
	for _, p := range ranked {
		item := rankedProductResponse{
			productResponse: toProductResponse(p.Product),
			LocalQuantity:   p.LocalQuantity,
			TotalQuantity:   p.TotalQuantity,
			Bucket:          p.Bucket(),
		}
		if !p.LastPurchase.IsZero() {
			t := p.LastPurchase
			item.LastPurchase = &t
		}
		out = append(out, item)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	products, err := h.service.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("search products", slog.Any("error", err))
		respondError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type scanRequest struct {
	Barcode string `json:"barcode" validate:"required"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	product, err := h.service.Scan(r.Context(), req.Barcode)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toProductResponse(product))
}

func (h *Handler) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context())
	if err != nil {
		h.logger.Error("list tags", slog.Any("error", err))
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tags)
}

func (h *Handler) handleWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.service.ListWarehouses(r.Context())
	if err != nil {
		h.logger.Error("list warehouses", slog.Any("error", err))
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warehouses)
}

type createProductRequest struct {
	Name    string          `json:"name" validate:"required"`
	Barcode string          `json:"barcode" validate:"required"`
	Price   decimal.Decimal `json:"price"`
	Tags    []string        `json:"tags"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), Product{
		Name:    req.Name,
		Barcode: req.Barcode,
		Price:   req.Price,
		Tags:    req.Tags,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toProductResponse(product))
}

type setPriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (h *Handler) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		respondError(w, httpx.ErrValidation)
		return
	}
	var req setPriceRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.SetPrice(r.Context(), productID, req.Price); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrWarehouseNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateBarcode):
		httpx.Problem(w, http.StatusConflict, "Duplicate Barcode", err.Error())
	case errors.Is(err, ErrInvalidPrice):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
