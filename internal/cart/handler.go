package cart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stockroom-pos/stockroom-pos/internal/catalog"
	"github.com/stockroom-pos/stockroom-pos/internal/credit"
	"github.com/stockroom-pos/stockroom-pos/internal/ledger"
	"github.com/stockroom-pos/stockroom-pos/internal/platform/httpx"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
	"github.com/stockroom-pos/stockroom-pos/internal/stock"
)

// CatalogPort is the slice of the catalog the cart endpoints need:
// line resolution plus barcode scanning.
type CatalogPort interface {
	ProductPort
	Scan(ctx context.Context, barcode string) (catalog.Product, error)
}

// Handler wires HTTP endpoints for the session cart.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	products CatalogPort
}

// NewHandler constructs cart handler.
func NewHandler(logger *slog.Logger, service *Service, products CatalogPort) *Handler {
	return &Handler{logger: logger, service: service, products: products}
}

// MountRoutes registers cart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleShow)
	r.Post("/items", h.handleAdd)
	r.Post("/items/remove", h.handleRemove)
	r.Post("/checkout", h.handleCheckout)
}

type lineResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type cartResponse struct {
	Lines []lineResponse  `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func toCartResponse(c *Cart) cartResponse {
	out := cartResponse{Lines: make([]lineResponse, 0, len(c.Lines)), Total: c.TotalPrice()}
	for _, line := range c.Lines {
		out.Lines = append(out.Lines, lineResponse{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.Price,
			LineTotal: line.TotalPrice(),
		})
	}
	return out
}

func (h *Handler) loadCart(r *http.Request) (*shared.Session, *Cart, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, nil, shared.ErrNotLoggedIn
	}
	c, err := Load(r.Context(), sess, h.products)
	if err != nil {
		return nil, nil, err
	}
	return sess, c, nil
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	_, c, err := h.loadCart(r)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCartResponse(c))
}

type addRequest struct {
	ProductID int64  `json:"product_id"`
	Barcode   string `json:"barcode"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	sess, c, err := h.loadCart(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req addRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	var product catalog.Product
	switch {
	case req.Barcode != "":
		product, err = h.products.Scan(r.Context(), req.Barcode)
	case req.ProductID != 0:
		product, err = h.products.GetProduct(r.Context(), req.ProductID)
	default:
		respondError(w, httpx.ErrValidation)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	if err := c.Add(product, req.Quantity, product.IsDummy); err != nil {
		respondError(w, err)
		return
	}
	if err := Save(sess, c); err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCartResponse(c))
}

type removeRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	sess, c, err := h.loadCart(r)
	if err != nil {
		respondError(w, err)
		return
	}
	var req removeRequest
	if err := httpx.Bind(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := c.Remove(req.ProductID, req.Quantity); err != nil {
		respondError(w, err)
		return
	}
	if err := Save(sess, c); err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	sess, c, err := h.loadCart(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if sess.User() == 0 {
		respondError(w, shared.ErrNotLoggedIn)
		return
	}
	warehouseID := shared.WarehouseFromContext(r.Context())
	total := c.TotalPrice()
	if err := h.service.Checkout(r.Context(), sess.User(), warehouseID, c); err != nil {
		h.logger.Warn("checkout rejected",
			slog.Int64("user_id", sess.User()),
			slog.Int64("warehouse_id", warehouseID),
			slog.Any("error", err))
		respondError(w, err)
		return
	}
	if err := Save(sess, c); err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"total": total})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotLoggedIn):
		httpx.Problem(w, http.StatusUnauthorized, "Not Logged In", err.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, credit.ErrInsufficientCredit):
		httpx.Problem(w, http.StatusConflict, "Insufficient Credit", err.Error())
	case errors.Is(err, ledger.ErrTxConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "please retry the operation")
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrEmptyCart),
		errors.Is(err, stock.ErrInvalidQuantity), errors.Is(err, credit.ErrGuestCredit):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
