package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pricewatch_api/internal/pricing/app/web/handlers"
	"pricewatch_api/metrics"
	"pricewatch_api/pkg/middleware"
)

// SetupRoutes собирает маршруты API поверх chi.
func SetupRoutes(
	productHandler *handlers.ProductHandler,
	refreshHandler *handlers.RefreshHandler,
	violationHandler *handlers.ViolationHandler,
	importHandler *handlers.ImportHandler,
	adminHandler *handlers.AdminHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.PrometheusMiddleware)

	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	r.Get("/api/products", productHandler.ListHandler)
	r.Post("/api/products", productHandler.AddHandler)
	r.Post("/api/products/refresh-batch", refreshHandler.BatchHandler)
	r.Post("/api/products/{nmID}/refresh", productHandler.RefreshHandler)
	r.Post("/api/products/{nmID}/rrc", productHandler.SetRRCHandler)
	r.Patch("/api/products/{nmID}/rrc", productHandler.SetRRCHandler)
	r.Delete("/api/products/{nmID}", productHandler.DeleteHandler)

	r.Get("/api/violations", violationHandler.SellersHandler)
	r.Get("/api/sellers/{sellerID}/violations", violationHandler.SellerProductsHandler)
	r.Get("/api/stats", violationHandler.StatsHandler)

	r.Post("/api/upload", importHandler.UploadHandler)

	r.Get("/api/admins", adminHandler.ListHandler)
	r.Post("/api/admins", adminHandler.AddHandler)
	r.Delete("/api/admins/{chatID}", adminHandler.RemoveHandler)

	r.Handle("/metrics", metrics.MetricsHandler())

	return r
}
