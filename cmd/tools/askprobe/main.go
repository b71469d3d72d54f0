package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zephyrhk/answer-machine/backend/internal/config"
	"github.com/zephyrhk/answer-machine/backend/internal/model/persona"
	sessionModel "github.com/zephyrhk/answer-machine/backend/internal/model/session"
	answerService "github.com/zephyrhk/answer-machine/backend/internal/service/answer"
	imageService "github.com/zephyrhk/answer-machine/backend/internal/service/image"
)

// askprobe 直接調用回答與圖像服務，用於驗證線上憑證與模型配置。
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 無法加載 .env，改用系統環境變量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加載失敗: %v", err)
	}

	mode := flag.String("mode", "answer", "測試模式: answer 或 image")
	personaID := flag.String("persona", "", "persona ID，留空則使用配置默認值")
	question := flag.String("question", "", "要提問的問題")
	prompt := flag.String("prompt", "", "圖像生成描述")
	subject := flag.String("subject", "", "備用提示的主體描述")
	color := flag.String("color", "", "備用提示的顏色，例如 紅色")
	temperature := flag.Float64("temperature", sessionModel.DefaultTemperature, "生成溫度 0.0-1.0")
	maxTokens := flag.Int("maxTokens", sessionModel.DefaultMaxTokens, "回答的最大token數")
	stream := flag.Bool("stream", false, "以流式方式打印回答")
	timeout := flag.Duration("timeout", 45*time.Second, "請求超時時間")

	flag.Parse()

	if !cfg.AI.Configured() {
		log.Fatal("API key 未配置，請設置 API_KEY 或提供 secrets 文件")
	}

	personaStore := persona.NewMemoryStore(persona.Seed())

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "answer":
		runAnswer(ctx, cfg, personaStore, *personaID, *question, *temperature, *maxTokens, *stream)
	case "image":
		runImage(ctx, cfg, *prompt, *subject, *color)
	default:
		flag.Usage()
		log.Fatal("請通過 -mode=answer 或 -mode=image 指定測試模式")
	}
}

func runAnswer(ctx context.Context, cfg *config.Config, personas persona.Store, personaID, question string, temperature float64, maxTokens int, stream bool) {
	if strings.TrimSpace(question) == "" {
		log.Fatal("answer 模式需要通過 -question 提供問題")
	}

	svc := answerService.NewService(personas, cfg.AI)
	params := sessionModel.Params{Temperature: temperature, MaxTokens: maxTokens}

	log.Printf("開始回答測試: persona=%s temperature=%.2f maxTokens=%d", personaID, temperature, maxTokens)

	if stream && svc.StreamingEnabled() {
		answer, err := svc.ResolveStream(ctx, personaID, question, params, func(delta string) {
			fmt.Print(delta)
		})
		if err != nil {
			log.Fatalf("回答調用失敗: %v", err)
		}
		fmt.Println()
		log.Printf("回答完成: %d 字節", len(answer))
		return
	}

	answer, err := svc.Resolve(ctx, personaID, question, params)
	if err != nil {
		log.Fatalf("回答調用失敗: %v", err)
	}

	log.Printf("回答成功: %s", answer)
}

func runImage(ctx context.Context, cfg *config.Config, prompt, subject, color string) {
	if strings.TrimSpace(prompt) == "" {
		log.Fatal("image 模式需要通過 -prompt 提供角色描述")
	}

	svc := imageService.NewService(cfg.AI, cfg.Image)

	log.Printf("開始圖像測試: model=%s aspect=%s quality=%s", cfg.Image.Model, cfg.Image.Aspect, cfg.Image.Quality)

	url, err := svc.ResolveImage(ctx, imageService.Request{Prompt: prompt, Subject: subject, ColorHint: color})
	if err != nil {
		log.Fatalf("圖像生成失敗: %v", err)
	}

	log.Printf("圖像生成成功: %s", url)
}
