package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pricewatch_api/internal/pricing/storage"
)

type AdminHandler struct {
	repo *storage.AdminRepository
}

func NewAdminHandler(repo *storage.AdminRepository) *AdminHandler {
	return &AdminHandler{repo: repo}
}

// ListHandler: GET /api/admins (супер-админ включён всегда).
func (h *AdminHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	admins, err := h.repo.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "items": admins})
}

// AddHandler: POST /api/admins {chat_id, username?}
func (h *AdminHandler) AddHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChatID   int64  `json:"chat_id"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ChatID == 0 {
		writeError(w, http.StatusBadRequest, "chat_id должен быть числом")
		return
	}
	if err := h.repo.Add(r.Context(), body.ChatID, body.Username); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "chat_id": body.ChatID})
}

// RemoveHandler: DELETE /api/admins/{chatID}. Супер-админа удалить нельзя.
func (h *AdminHandler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	chatID, err := strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "chat_id должен быть числом")
		return
	}
	if err := h.repo.Remove(r.Context(), chatID); err != nil {
		if errors.Is(err, storage.ErrSuperAdminRemoval) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "chat_id": chatID})
}
