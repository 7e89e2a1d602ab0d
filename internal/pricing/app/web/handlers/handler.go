package handlers

import (
	"encoding/json"
	"net/http"
)

// Ответы держим в формате исходного API: успех — {"ok":true,...},
// ошибка — {"ok":false,"error":"..."} с подходящим статусом.

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": message})
}
