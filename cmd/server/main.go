package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/leadops/internal/api"
	"github.com/ignite/leadops/internal/config"
	"github.com/ignite/leadops/internal/pkg/distlock"
	"github.com/ignite/leadops/internal/pkg/logger"
	"github.com/ignite/leadops/internal/repository/memory"
	"github.com/ignite/leadops/internal/repository/postgres"
	"github.com/ignite/leadops/internal/service/recipientlist"
	"github.com/ignite/leadops/internal/storage"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := openDatabase(ctx, cfg.Database)
	if db != nil {
		defer db.Close()
	}
	redisClient := openRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cache, archive, s3Archive := buildStorage(ctx, cfg, redisClient)

	var repo recipientlist.Repository
	if db != nil {
		repo = postgres.NewRecipientListRepo(db)
	} else {
		logger.Warn("DATABASE_URL not set; recipient lists are kept in memory only")
		repo = memory.NewRecipientListRepo()
	}

	svc := recipientlist.NewService(repo, cache, archive,
		distlock.NewFactory(redisClient, db, cfg.Imports.LockTTL()),
		recipientlist.Options{
			CacheTTL:     cfg.Imports.CacheTTL(),
			PreviewLimit: cfg.Imports.PreviewLimit,
		})

	// A nil *S3Archive must not reach the checker as a non-nil interface.
	var pinger api.ArchivePinger
	if s3Archive != nil {
		pinger = s3Archive
	}
	health := api.NewHealthChecker(db, redisClient, pinger)
	router := api.SetupRoutes(api.NewRecipientHandlers(svc, cfg.Imports.MaxUploadBytes), health, cfg.CORS)
	server := api.NewServer(cfg.Server, router)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// openDatabase returns nil when no database is configured or reachable.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) *sql.DB {
	if !cfg.Enabled() {
		return nil
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		logger.Warn("failed to open database", "error", err)
		return nil
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Warn("database unreachable; falling back to memory", "error", err)
		db.Close()
		return nil
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Warn("recipient list migration failed", "error", err)
	}
	logger.Info("database connected")
	return db
}

// openRedis returns nil when Redis is not configured or unreachable.
func openRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.URL == "" {
		logger.Info("REDIS_URL not set; using in-process cache and locks")
		return nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed", "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}

// buildStorage picks the cache and archive backends. Redis wins for the
// cache, then DynamoDB when running against AWS, then memory.
func buildStorage(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (recipientlist.Cache, recipientlist.Archive, *storage.S3Archive) {
	var (
		cache     recipientlist.Cache
		archive   recipientlist.Archive
		s3Archive *storage.S3Archive
	)

	if cfg.Storage.IsAWS() {
		awsCfg, err := storage.NewAWSConfig(ctx, cfg.Storage)
		if err != nil {
			logger.Warn("failed to load AWS config", "error", err)
		} else {
			if cfg.Storage.S3Bucket != "" {
				s3Archive = storage.NewS3Archive(s3.NewFromConfig(awsCfg), cfg.Storage.S3Bucket)
				archive = s3Archive
				logger.Info("archiving uploads to S3", "bucket", cfg.Storage.S3Bucket)
			}
			if redisClient == nil && cfg.Storage.DynamoDBTable != "" {
				cache = storage.NewDynamoCache(dynamodb.NewFromConfig(awsCfg), cfg.Storage.DynamoDBTable)
				logger.Info("caching recipients in DynamoDB", "table", cfg.Storage.DynamoDBTable)
			}
		}
	}

	if redisClient != nil {
		cache = storage.NewRedisCache(redisClient, cfg.Redis.KeyPrefix)
	}
	if cache == nil {
		cache = storage.NewMemoryCache()
	}

	if archive == nil && cfg.Imports.ArchiveRawUploads {
		local, err := storage.NewLocalArchive(filepath.Join(cfg.Storage.LocalPath, "uploads"))
		if err != nil {
			logger.Warn("local archive unavailable", "error", err)
		} else {
			archive = local
		}
	}
	return cache, archive, s3Archive
}
