package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/invicto-ai/roma-assistant/internal/assistant"
	"github.com/invicto-ai/roma-assistant/internal/chat"
	"github.com/invicto-ai/roma-assistant/internal/config"
	"github.com/invicto-ai/roma-assistant/internal/knowledge"
	"github.com/invicto-ai/roma-assistant/internal/ledger"
	"github.com/invicto-ai/roma-assistant/internal/logging"
	"github.com/invicto-ai/roma-assistant/internal/redeliver"
	"github.com/invicto-ai/roma-assistant/internal/store/redisstore"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

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
	svc := chat.NewService(repo, completer, router, assembler, log)

	marker := redisstore.NewMarker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer marker.Close()

	handler := redeliver.NewHandler(svc, marker, log)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatal("rabbit_dial_failed", zap.Error(err))
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("rabbit_channel_failed", zap.Error(err))
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(cfg.RabbitQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.RabbitQueue + ".dlq",
	}); err != nil {
		log.Fatal("queue_declare_failed", zap.Error(err))
	}

	concurrency := workerConcurrency()
	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatal("qos_failed", zap.Error(err))
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatal("consume_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker_started",
		zap.String("queue", cfg.RabbitQueue),
		zap.Int("concurrency", concurrency),
	)

	deliveries := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range deliveries {
				sum := handler.Process(ctx, [][]byte{d.Body})
				if sum.Failed > 0 {
					// Dead-letter; retry budgeting belongs to the
					// queue topology, not this process.
					_ = d.Nack(false, false)
					continue
				}
				if err := d.Ack(false); err != nil {
					log.Warn("ack_failed", zap.Int("worker", workerID), zap.Error(err))
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("worker_shutting_down")
			close(deliveries)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Warn("delivery_channel_closed")
				time.Sleep(1 * time.Second)
				continue
			}
			deliveries <- d
		}
	}
}
