package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zephyrhk/answer-machine/backend/internal/model/persona"
	"github.com/zephyrhk/answer-machine/backend/pkg/utils"
)

// Handler persona的HTTP處理器
type Handler struct {
	personas persona.Store
}

// New 創建persona處理器
func New(personas persona.Store) *Handler {
	return &Handler{personas: personas}
}

// RegisterRoutes 註冊persona相關的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/personas", h.handleListPersonas)
}

// handleListPersonas 列出所有persona
func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}
