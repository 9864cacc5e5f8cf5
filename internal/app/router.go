package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockroom-pos/stockroom-pos/internal/cart"
	"github.com/stockroom-pos/stockroom-pos/internal/catalog"
	"github.com/stockroom-pos/stockroom-pos/internal/credit"
	"github.com/stockroom-pos/stockroom-pos/internal/observability"
	"github.com/stockroom-pos/stockroom-pos/internal/shared"
	"github.com/stockroom-pos/stockroom-pos/internal/stats"
	"github.com/stockroom-pos/stockroom-pos/internal/stock"
	"github.com/stockroom-pos/stockroom-pos/internal/users"
	"github.com/stockroom-pos/stockroom-pos/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Warehouses     WarehouseResolver

	CatalogHandler *catalog.Handler
	CartHandler    *cart.Handler
	StockHandler   *stock.Handler
	CreditHandler  *credit.Handler
	UsersHandler   *users.Handler
	StatsHandler   *stats.Handler
	JobsHandler    *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router for the kiosk API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(WarehouseMiddleware(params.Logger, params.Warehouses))

		r.Route("/catalog", params.CatalogHandler.MountRoutes)
		r.Route("/cart", params.CartHandler.MountRoutes)
		r.Route("/stock", params.StockHandler.MountRoutes)
		r.Route("/credit", params.CreditHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/stats", params.StatsHandler.MountRoutes)
	})

	return r
}
