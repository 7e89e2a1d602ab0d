package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pricewatch_api/internal/pricing/business/services/fetch"
	"pricewatch_api/internal/pricing/business/services/refresh"
	"pricewatch_api/internal/pricing/storage"
)

type ProductHandler struct {
	repo     *storage.ProductRepository
	engine   *refresh.Engine
	resolver *storage.Resolver
}

func NewProductHandler(repo *storage.ProductRepository, engine *refresh.Engine, resolver *storage.Resolver) *ProductHandler {
	return &ProductHandler{repo: repo, engine: engine, resolver: resolver}
}

func (h *ProductHandler) catalog(r *http.Request) storage.Catalog {
	return h.resolver.Resolve(r.URL.Query().Get("catalog"))
}

func nmIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "nmID"), 10, 64)
}

// ListHandler: GET /api/products
func (h *ProductHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.List(r.Context(), h.catalog(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// AddHandler: POST /api/products — тянем живую карточку и сохраняем.
func (h *ProductHandler) AddHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NmID json.Number `json:"nm_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "nm_id должен быть числом")
		return
	}
	nmID, err := body.NmID.Int64()
	if err != nil || nmID <= 0 {
		writeError(w, http.StatusBadRequest, "nm_id должен быть числом")
		return
	}

	item, err := h.engine.RefreshOne(r.Context(), h.catalog(r), nmID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fetch.ErrProductNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "item": item})
}

// RefreshHandler: POST /api/products/{nmID}/refresh
func (h *ProductHandler) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	nmID, err := nmIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "nm_id должен быть числом")
		return
	}

	item, err := h.engine.RefreshOne(r.Context(), h.catalog(r), nmID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fetch.ErrProductNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "item": item})
}

// SetRRCHandler: POST/PATCH /api/products/{nmID}/rrc. rrc = null/"" очищает.
func (h *ProductHandler) SetRRCHandler(w http.ResponseWriter, r *http.Request) {
	nmID, err := nmIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "nm_id должен быть числом")
		return
	}

	var body struct {
		RRC interface{} `json:"rrc"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "rrc должно быть числом")
		return
	}

	// rrc: число ставит РРЦ, null/"" очищает
	var value *float64
	switch v := body.RRC.(type) {
	case nil:
	case float64:
		value = &v
	case string:
		if v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "rrc должно быть числом")
				return
			}
			value = &parsed
		}
	default:
		writeError(w, http.StatusBadRequest, "rrc должно быть числом")
		return
	}

	if err := h.repo.SetFloorPrice(r.Context(), h.catalog(r), nmID, value); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "nm_id": nmID, "rrc": value})
}

// DeleteHandler: DELETE /api/products/{nmID}. Идемпотентно.
func (h *ProductHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	nmID, err := nmIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "nm_id должен быть числом")
		return
	}
	if err := h.repo.Delete(r.Context(), h.catalog(r), nmID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "nm_id": nmID})
}
