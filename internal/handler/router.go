package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zephyrhk/answer-machine/backend/internal/config"
	imageHandler "github.com/zephyrhk/answer-machine/backend/internal/handler/image"
	personaHandler "github.com/zephyrhk/answer-machine/backend/internal/handler/persona"
	presetHandler "github.com/zephyrhk/answer-machine/backend/internal/handler/preset"
	sessionHandler "github.com/zephyrhk/answer-machine/backend/internal/handler/session"
	"github.com/zephyrhk/answer-machine/backend/internal/handler/stream"
	middlewarePkg "github.com/zephyrhk/answer-machine/backend/internal/middleware"
	personaModel "github.com/zephyrhk/answer-machine/backend/internal/model/persona"
	presetModel "github.com/zephyrhk/answer-machine/backend/internal/model/preset"
	imageService "github.com/zephyrhk/answer-machine/backend/internal/service/image"
	sessionService "github.com/zephyrhk/answer-machine/backend/internal/service/session"
	"github.com/zephyrhk/answer-machine/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(cfg config.ServerConfig, personas personaModel.Store, presets presetModel.Store, sessionSvc *sessionService.Service, imageSvc *imageService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.AllowedOrigins))
	r.Use(middlewarePkg.RateLimit(cfg.RateLimit, cfg.RateBurst))

	// Create handlers
	personaH := personaHandler.New(personas)
	presetH := presetHandler.New(presets)
	sessionH := sessionHandler.New(sessionSvc)
	imageH := imageHandler.New(imageSvc)
	streamH := stream.New(sessionSvc, personas)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		personaH.RegisterRoutes(api)
		presetH.RegisterRoutes(api)
		sessionH.RegisterRoutes(api)
		imageH.RegisterRoutes(api)

		// Streaming ask endpoint; the session mutation matches a plain ask.
		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			question := r.URL.Query().Get("question")

			if question == "" {
				utils.RespondError(w, http.StatusBadRequest, "question query parameter is required")
				return
			}

			params, err := stream.ParamsFromQuery(r.URL.Query())
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, err.Error())
				return
			}

			if err := streamH.HandleStreamRequest(r.Context(), w, sessionID, question, params); err != nil {
				log.Printf("[stream] error handling request: %v", err)
				switch {
				case errors.Is(err, sessionService.ErrSessionNotFound):
					utils.RespondError(w, http.StatusNotFound, "session not found")
				case errors.Is(err, sessionService.ErrEmptyQuestion):
					utils.RespondWarning(w, sessionHandler.WarnEmptyQuestion)
				default:
					utils.RespondError(w, http.StatusInternalServerError, "streaming failed")
				}
			}
		})
	})

	return r
}
