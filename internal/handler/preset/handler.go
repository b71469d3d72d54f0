package preset

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zephyrhk/answer-machine/backend/internal/model/preset"
	"github.com/zephyrhk/answer-machine/backend/pkg/utils"
)

// Handler 預設問題的HTTP處理器
type Handler struct {
	presets preset.Store
}

// New 創建預設問題處理器
func New(presets preset.Store) *Handler {
	return &Handler{presets: presets}
}

// RegisterRoutes 註冊預設問題相關的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/presets", h.handleListPresets)
}

// handleListPresets 列出所有預設問題
func (h *Handler) handleListPresets(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.presets.List())
}
