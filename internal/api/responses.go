package api

import (
	"encoding/json"
	"net/http"
)

// APIResponse 统一 JSON 响应
type APIResponse struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&APIResponse{
		Success: status < http.StatusBadRequest,
		Code:    status,
		Message: message,
		Data:    data,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	respond(w, status, "ok", data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	respond(w, status, message, nil)
}
