// cmd/chatbot-engine/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"chatbot-engine/internal/common/aws"
	"chatbot-engine/internal/common/config"
	"chatbot-engine/internal/common/database"
	apperrors "chatbot-engine/internal/common/errors"
	"chatbot-engine/internal/common/logger"
	"chatbot-engine/internal/gateway"
	"chatbot-engine/internal/notify"
	"chatbot-engine/internal/orchestrator"
	"chatbot-engine/internal/projections"
	"chatbot-engine/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting chatbot engine...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (projections only) ---
	var indexer orchestrator.SessionIndexer
	if cfg.Projections.IndexingEnabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = projections.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index, log)
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Notification channels ---
	var notifier notify.Notifier = notify.NoOp{}
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var sesSvc notify.SESService
		var snsSvc notify.SNSService
		if cfg.Notifications.Email.Enabled {
			client, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client failed", zap.Error(err))
			}
			sesSvc = client
		}
		if cfg.Notifications.SMS.Enabled {
			client, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client failed", zap.Error(err))
			}
			snsSvc = client
		}
		notifier = notify.NewAgentTransfer(notify.Config{
			EmailEnabled: cfg.Notifications.Email.Enabled,
			FromEmail:    cfg.Notifications.Email.FromEmail,
			ToEmail:      cfg.Notifications.Email.ToEmail,
			SMSEnabled:   cfg.Notifications.SMS.Enabled,
			ToPhone:      cfg.Notifications.SMS.ToPhone,
		}, sesSvc, snsSvc, log)
	}

	// --- Engine ---
	sessions := store.NewPostgres(pg.GetDB())
	cache := store.NewCache(
		redis.GetClient(),
		time.Duration(cfg.Engine.SnapshotTTL)*time.Second,
		time.Duration(cfg.Engine.TurnLockTTL)*time.Second,
	)

	gw := gateway.NewHTTP(gateway.Config{
		BaseURL:     cfg.Completion.BaseURL,
		APIKey:      cfg.Completion.APIKey,
		Model:       cfg.Completion.Model,
		Timeout:     time.Duration(cfg.Completion.Timeout) * time.Millisecond,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
	}, log)

	eng := orchestrator.New(orchestrator.Config{
		HistoryTurns:    cfg.Engine.HistoryTurns,
		ExtractionTurns: cfg.Engine.ExtractionTurns,
	}, orchestrator.Deps{
		Store:    sessions,
		Cache:    cache,
		Gateway:  gw,
		Notifier: notifier,
		Indexer:  indexer,
		Logger:   log,
	})

	// --- Chat API ---
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", handleStartSession(eng, log))
	mux.HandleFunc("/messages", handleSubmitUtterance(eng, log))
	mux.HandleFunc("/leads/stats", handleLeadStats(sessions, log))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	apiServer := &http.Server{Addr: ":8080", Handler: mux}
	go func() {
		zapLog.Info("Chat API listening on :8080")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("chat api server failed", zap.Error(err))
		}
	}()

	// --- Metrics Server ---
	if cfg.Metrics.Enabled {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())
			zapLog.Info("Metrics server listening", zap.String("address", cfg.Metrics.Address))
			if err := http.ListenAndServe(cfg.Metrics.Address, metricsMux); err != nil {
				zapLog.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("chat api shutdown failed", zap.Error(err))
	}

	zapLog.Info("Chatbot engine stopped")
}

func handleStartSession(eng orchestrator.Engine, log logger.Logger) http.HandlerFunc {
	type request struct {
		Token        string `json:"token"`
		CustomerName string `json:"customerName"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		sess, welcome, err := eng.StartSession(r.Context(), req.Token, req.CustomerName)
		if err != nil {
			writeEngineError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"session": sess,
			"welcome": welcome,
		})
	}
}

func handleSubmitUtterance(eng orchestrator.Engine, log logger.Logger) http.HandlerFunc {
	type request struct {
		Token string `json:"token"`
		Text  string `json:"text"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		res, err := eng.SubmitUtterance(r.Context(), req.Token, req.Text)
		if err != nil {
			writeEngineError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"reply":     res.Reply,
			"category":  res.Session.Category,
			"status":    res.Session.Status,
			"directive": res.Directive.String(),
		})
	}
}

func handleLeadStats(sessions store.SessionStore, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := projections.ComputeLeadStats(r.Context(), sessions)
		if err != nil {
			writeEngineError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeEngineError(w http.ResponseWriter, log logger.Logger, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL"

	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		code = string(stdErr.Code)
		switch stdErr.Code {
		case apperrors.ErrCodeInvalidSessionToken, apperrors.ErrCodeEmptyUtterance:
			status = http.StatusBadRequest
		case apperrors.ErrCodeSessionNotFound:
			status = http.StatusNotFound
		case apperrors.ErrCodeTurnInProgress:
			status = http.StatusConflict
		}
	}

	log.WithError(err).Error("request failed", map[string]interface{}{"code": code})
	writeJSON(w, status, map[string]string{"error": code})
}
