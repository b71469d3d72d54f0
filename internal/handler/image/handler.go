package image

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zephyrhk/answer-machine/backend/internal/resolve"
	imageService "github.com/zephyrhk/answer-machine/backend/internal/service/image"
	"github.com/zephyrhk/answer-machine/backend/pkg/utils"
)

// WarnEmptyPrompt is shown when the description box is submitted empty.
const WarnEmptyPrompt = "Please describe the character you want to generate."

// Handler 圖像生成的HTTP處理器
type Handler struct {
	images *imageService.Service
}

// New 創建圖像生成處理器
func New(images *imageService.Service) *Handler {
	return &Handler{images: images}
}

// RegisterRoutes 註冊圖像生成路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/image", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload imageService.Request

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Prompt) == "" {
		utils.RespondWarning(w, WarnEmptyPrompt)
		return
	}

	url, err := h.images.ResolveImage(r.Context(), payload)
	if err != nil {
		respondResolveError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// respondResolveError maps resolver failures onto HTTP. A missing key is a
// deployment problem, so it reads as service-unavailable; upstream failures
// read as server errors. The kind travels with the message either way.
func respondResolveError(w http.ResponseWriter, err error) {
	re, ok := resolve.AsError(err)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusInternalServerError
	if re.Kind == resolve.KindConfiguration {
		status = http.StatusServiceUnavailable
	}
	utils.RespondJSON(w, status, map[string]string{"error": re.Message, "kind": string(re.Kind)})
}
