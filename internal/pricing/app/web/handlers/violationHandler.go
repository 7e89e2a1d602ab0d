package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pricewatch_api/internal/pricing/storage"
)

type ViolationHandler struct {
	repo           *storage.ProductRepository
	resolver       *storage.Resolver
	stalenessHours int
}

func NewViolationHandler(repo *storage.ProductRepository, resolver *storage.Resolver, stalenessHours int) *ViolationHandler {
	return &ViolationHandler{repo: repo, resolver: resolver, stalenessHours: stalenessHours}
}

// SellersHandler: GET /api/violations — селлеры с нарушениями, по убыванию
// числа нарушений.
func (h *ViolationHandler) SellersHandler(w http.ResponseWriter, r *http.Request) {
	catalog := h.resolver.Resolve(r.URL.Query().Get("catalog"))
	sellers, err := h.repo.ListViolatingSellers(r.Context(), catalog)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "items": sellers})
}

// SellerProductsHandler: GET /api/sellers/{sellerID}/violations — артикулы
// селлера с нарушением по отображаемой цене.
func (h *ViolationHandler) SellerProductsHandler(w http.ResponseWriter, r *http.Request) {
	sellerID, err := strconv.ParseInt(chi.URLParam(r, "sellerID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "seller_id должен быть числом")
		return
	}
	catalog := h.resolver.Resolve(r.URL.Query().Get("catalog"))

	nmIDs, err := h.repo.ListViolatingProducts(r.Context(), catalog, sellerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]map[string]interface{}, 0, len(nmIDs))
	for _, id := range nmIDs {
		items = append(items, map[string]interface{}{"nm_id": id})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "items": items})
}

// StatsHandler: GET /api/stats
func (h *ViolationHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	catalog := h.resolver.Resolve(r.URL.Query().Get("catalog"))
	stats, err := h.repo.Stats(r.Context(), catalog, h.stalenessHours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":              true,
		"total_rows":      stats.TotalRows,
		"violation_count": stats.ViolationCount,
		"due_count":       stats.DueCount,
	})
}
