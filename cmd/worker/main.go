// Worker runs the background jobs of the API: it prunes expired sessions, invitations and
// password-reset tokens, and forwards telemetry events from Kafka to Loki.
// Pruning needs DATABASE_URL. Forwarding runs only when KAFKA_BROKERS and LOKI_URL are both set.
package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"vyre/backend/internal/config"
	"vyre/backend/internal/db"
	invitationrepo "vyre/backend/internal/invitation/repository"
	"vyre/backend/internal/logging"
	"vyre/backend/internal/maintenance"
	sessionrepo "vyre/backend/internal/session/repository"
	"vyre/backend/internal/telemetry/loki"
	userrepo "vyre/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.Env).With("component", "worker")
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runPruner(ctx, conn, cfg.PruneInterval(), logger)
	}()

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) > 0 && cfg.LokiURL != "" {
		client, err := loki.NewClient(cfg.LokiURL, cfg.ServiceName)
		if err != nil {
			logger.Error("loki client", "error", err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			forwardEvents(ctx, brokers, cfg.TelemetryKafkaTopic, cfg.KafkaGroupID, client, logger)
		}()
	} else {
		logger.Info("event forwarding disabled; set KAFKA_BROKERS and LOKI_URL to enable")
	}

	wg.Wait()
	logger.Info("worker stopped")
}

func runPruner(ctx context.Context, conn *sql.DB, interval time.Duration, logger *slog.Logger) {
	sessions := sessionrepo.NewPostgresRepository(conn)
	invitations := invitationrepo.NewPostgresRepository(conn)
	users := userrepo.NewPostgresRepository(conn)
	pruner := maintenance.NewPruner(map[string]maintenance.ExpiredDeleter{
		"sessions":     sessions.DeleteExpired,
		"invitations":  invitations.DeleteExpired,
		"reset_tokens": users.ClearExpiredResetTokens,
	}, logger)
	logger.Info("pruning expired auth state", "interval", interval)
	pruner.Run(ctx, interval)
}

const (
	batchSize   = 100
	batchWindow = time.Second
)

// forwardEvents pushes events to Loki in batches and commits offsets only after a successful push.
func forwardEvents(ctx context.Context, brokers []string, topic, groupID string, client *loki.Client, logger *slog.Logger) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  batchWindow,
	})
	defer reader.Close()

	logger.Info("consuming telemetry events", "topic", topic, "group", groupID)
	for {
		batch, err := fetchBatch(ctx, reader)
		if len(batch) == 0 {
			if ctx.Err() != nil {
				return
			}
			logger.Error("kafka fetch", "error", err)
			time.Sleep(time.Second)
			continue
		}

		entries := make([]loki.Entry, 0, len(batch))
		for _, m := range batch {
			entries = append(entries, loki.EntryFromEventJSON(m.Value, m.Time.UTC()))
		}
		if !pushWithRetry(ctx, client, entries, logger) {
			return
		}
		if err := reader.CommitMessages(context.Background(), batch...); err != nil {
			logger.Error("kafka commit", "error", err)
		}
	}
}

// pushWithRetry retries the same batch until Loki accepts it. It returns false if ctx ends first,
// leaving the batch uncommitted for the next consumer.
func pushWithRetry(ctx context.Context, client *loki.Client, entries []loki.Entry, logger *slog.Logger) bool {
	backoff := time.Second
	for {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := client.Push(pushCtx, entries...)
		cancel()
		if err == nil {
			return true
		}
		logger.Error("loki push", "error", err, "entries", len(entries), "retry_in", backoff)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

// fetchBatch blocks for the first message, then collects more until batchSize or batchWindow.
func fetchBatch(ctx context.Context, reader *kafka.Reader) ([]kafka.Message, error) {
	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}
	windowCtx, cancel := context.WithTimeout(ctx, batchWindow)
	defer cancel()
	for len(batch) < batchSize {
		m, err := reader.FetchMessage(windowCtx)
		if err != nil {
			break
		}
		batch = append(batch, m)
	}
	return batch, nil
}
