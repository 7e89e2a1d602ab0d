package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"pricewatch_api/internal/pricing/business/services/importer"
	"pricewatch_api/internal/pricing/storage"
)

const maxUploadSize = 16 << 20 // 16 MB

type ImportHandler struct {
	service  *importer.Service
	resolver *storage.Resolver
}

func NewImportHandler(service *importer.Service, resolver *storage.Resolver) *ImportHandler {
	return &ImportHandler{service: service, resolver: resolver}
}

// UploadHandler: POST /api/upload — multipart с полем file (.xlsx или .csv).
func (h *ImportHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "не удалось прочитать форму")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Файл не передан")
		return
	}
	defer file.Close()

	catalog := h.resolver.Resolve(r.URL.Query().Get("catalog"))

	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		report, err := h.service.ImportXLSX(r.Context(), catalog, file)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok": true, "total": report.Total, "affected": report.Affected,
			"skipped": report.Skipped, "errors_count": report.ErrorsCount,
		})
	case ".csv":
		cp1251 := boolParam(r, "cp1251")
		report, err := h.service.ImportCSV(r.Context(), catalog, file, cp1251)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok": true, "total": report.Total, "affected": report.Affected,
			"skipped": report.Skipped, "errors_count": report.ErrorsCount,
		})
	default:
		writeError(w, http.StatusBadRequest, "поддерживаются только .xlsx и .csv")
	}
}
