package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"smartresume/internal/ai"
	"smartresume/internal/api"
	"smartresume/internal/auth"
	"smartresume/internal/config"
	"smartresume/internal/database"
	"smartresume/internal/logging"
	"smartresume/internal/notify"
	"smartresume/internal/session"
	"smartresume/internal/storage"
	"smartresume/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	cfg := config.MustLoad()

	logger := logging.New(os.Stdout, cfg.Log)
	slog.SetDefault(logger)
	log.Printf("api bootstrapped with db host=%s port=%d db=%s persistence=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Persistence.Driver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDatabase(cfg.Database, logger)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	log.Printf("database migrated")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	persister, err := newPersister(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("init persister: %v", err)
	}

	tokens, err := auth.NewTokenService([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("init token service: %v", err)
	}

	publisher := notify.NewPublisher(redisClient, logger)
	httpClient := &http.Client{Timeout: cfg.AI.Timeout}
	factory := func(ctx context.Context, apiKey string) (ai.Collaborator, error) {
		client, err := ai.NewClient(ctx, ai.Options{
			Provider:   cfg.AI.Provider,
			APIKey:     apiKey,
			Model:      cfg.AI.Model,
			BaseURL:    cfg.AI.BaseURL,
			HTTPClient: httpClient,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	// 令牌过期后会话不可能再被访问，多留一分钟给进行中的请求。
	sessions := session.NewManager(persister, factory, logger,
		session.WithChangeHook(publisher.DocumentChanged),
		session.WithIdleTTL(cfg.Auth.TokenTTL+time.Minute),
	)
	go sessions.RunEviction(ctx, 5*time.Minute)

	var scanner api.Scanner
	if s := api.NewClamdScanner(cfg.Clamd.Address); s != nil {
		scanner = s
	}

	router := api.NewRouter(cfg.API.AllowedOrigins, logger)
	api.RegisterRoutes(router, api.Deps{
		Sessions:       sessions,
		Tokens:         tokens,
		Exports:        database.NewExportStore(db),
		Queue:          asynqClient,
		Links:          storageClient,
		Scanner:        scanner,
		Subscriber:     redisClient,
		RateCounter:    redisClient,
		Logger:         logger,
		AllowedOrigins: cfg.API.AllowedOrigins,
		UploadMaxBytes: cfg.API.UploadMaxBytes,
		AIRateLimit:    cfg.API.AIRateLimit,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown api server failed", slog.Any("error", err))
		}
	}()

	log.Printf("api listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to start api server: %v", err)
	}
}

func newPersister(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (store.Persister, error) {
	switch cfg.Persistence.Driver {
	case config.PersistenceFile:
		return store.NewFilePersister(cfg.Persistence.Dir)
	case config.PersistenceRedis:
		return store.NewRedisPersister(redisClient), nil
	case config.PersistenceMemory:
		return store.NewMemoryPersister(), nil
	default:
		return database.NewSnapshotStore(db), nil
	}
}
