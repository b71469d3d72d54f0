package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zephyrhk/answer-machine/backend/internal/config"
	"github.com/zephyrhk/answer-machine/backend/internal/handler"
	"github.com/zephyrhk/answer-machine/backend/internal/model/persona"
	"github.com/zephyrhk/answer-machine/backend/internal/model/preset"
	answerService "github.com/zephyrhk/answer-machine/backend/internal/service/answer"
	imageService "github.com/zephyrhk/answer-machine/backend/internal/service/image"
	sessionService "github.com/zephyrhk/answer-machine/backend/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	presetStore := preset.NewMemoryStore(preset.Defaults())

	if _, ok := personaStore.FindByID(cfg.AI.DefaultPersona); !ok {
		log.Fatalf("default persona %q is not seeded", cfg.AI.DefaultPersona)
	}

	if !cfg.AI.Configured() {
		log.Println("API key 未配置，問答與圖像功能將回覆設定提示")
	}

	answerSvc := answerService.NewService(personaStore, cfg.AI)
	imageSvc := imageService.NewService(cfg.AI, cfg.Image)

	sessionSvc := sessionService.NewService(answerSvc, personaStore, presetStore, sessionService.Config{
		DefaultPersona: cfg.AI.DefaultPersona,
		TTL:            cfg.Session.TTL,
	})
	sessionSvc.StartJanitor(ctx, cfg.Session.SweepInterval)

	router := handler.NewRouter(cfg.Server, personaStore, presetStore, sessionSvc, imageSvc)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Answer machine backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
