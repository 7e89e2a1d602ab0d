package handlers

import (
	"net/http"
	"strconv"

	"pricewatch_api/internal/pricing/business/models"
	"pricewatch_api/internal/pricing/business/services/refresh"
	"pricewatch_api/internal/pricing/storage"
)

type RefreshHandler struct {
	engine   *refresh.Engine
	resolver *storage.Resolver
}

func NewRefreshHandler(engine *refresh.Engine, resolver *storage.Resolver) *RefreshHandler {
	return &RefreshHandler{engine: engine, resolver: resolver}
}

func boolParam(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || v == "true" || v == "True"
}

func intParam(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

type batchResponse struct {
	Ok bool `json:"ok"`
	*models.BatchReport
}

type sweepResponse struct {
	Ok bool `json:"ok"`
	*models.SweepReport
}

// BatchHandler: POST /api/products/refresh-batch
//
// Обычный режим — один пакет из выборки "кому нужно обновление".
// force=1 — детерминированный перебор с пагинацией offset/limit.
// full=1 — серверный цикл до исчерпания под блокировкой каталога.
// silent=1 — без уведомлений по завершении.
func (h *RefreshHandler) BatchHandler(w http.ResponseWriter, r *http.Request) {
	catalog := h.resolver.Resolve(r.URL.Query().Get("catalog"))
	limit := intParam(r, "limit")
	silent := boolParam(r, "silent")

	switch {
	case boolParam(r, "full"):
		report, err := h.engine.FullSweep(r.Context(), catalog, limit, silent)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		status := http.StatusOK
		if report.Locked {
			status = http.StatusConflict
		}
		writeJSON(w, status, sweepResponse{Ok: true, SweepReport: report})

	case boolParam(r, "force"):
		report, err := h.engine.ForceBatch(r.Context(), catalog, limit, intParam(r, "offset"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, batchResponse{Ok: true, BatchReport: report})

	default:
		report, err := h.engine.RefreshBatch(r.Context(), catalog, limit, silent)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, batchResponse{Ok: true, BatchReport: report})
	}
}
