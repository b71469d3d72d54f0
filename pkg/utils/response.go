package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON 以JSON格式發送回應
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 發送錯誤回應
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondWarning 發送輸入提示，引導用戶修正請求
func RespondWarning(w http.ResponseWriter, message string) {
	RespondJSON(w, http.StatusBadRequest, map[string]string{"warning": message})
}
