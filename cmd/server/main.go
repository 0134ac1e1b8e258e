package main

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/assistant"
	"github.com/invicto-ai/roma-assistant/internal/chat"
	"github.com/invicto-ai/roma-assistant/internal/config"
	"github.com/invicto-ai/roma-assistant/internal/feedback"
	"github.com/invicto-ai/roma-assistant/internal/httpapi"
	"github.com/invicto-ai/roma-assistant/internal/httpapi/handlers"
	"github.com/invicto-ai/roma-assistant/internal/knowledge"
	"github.com/invicto-ai/roma-assistant/internal/ledger"
	"github.com/invicto-ai/roma-assistant/internal/logging"
	"github.com/invicto-ai/roma-assistant/internal/store/rabbitmq"
	"github.com/invicto-ai/roma-assistant/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logging.MustNew(cfg.Logging)
	defer log.Sync() //nolint:errcheck

	db, err := ledger.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal("db_connect_failed", zap.Error(err))
	}
	repo := ledger.NewRepo(db)

	completer, err := assistant.NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		log.Fatal("openai_client_failed", zap.Error(err))
	}

	router := knowledge.NewRouter(cfg.Routes)
	assembler := chat.NewAssembler(repo, cfg.History.MaxTurnPairs, cfg.History.MaxCharsPerTurn, log)
	chatSvc := chat.NewService(repo, completer, router, assembler, log)
	feedbackSvc := feedback.NewService(repo, log)

	queue, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Fatal("rabbit_connect_failed", zap.Error(err))
	}
	defer queue.Close()

	marker := redisstore.NewMarker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer marker.Close()

	h := handlers.NewHandler(chatSvc, feedbackSvc, queue, marker, log)
	engine := httpapi.NewRouter(h)

	log.Info("server_starting", zap.String("port", cfg.ServerPort))
	if err := engine.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal("server_stopped", zap.Error(err))
	}
}
