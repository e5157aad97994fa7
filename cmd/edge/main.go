package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/nimbusdeck/edge/internal/config"
	"github.com/nimbusdeck/edge/internal/server"
	"github.com/nimbusdeck/edge/internal/storage"
	"github.com/nimbusdeck/edge/internal/usage"
	"github.com/nimbusdeck/edge/pkg/logger"
)

func main() {
	// Load env if it exists
	godotenv.Load()

	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.NewLogger(cfg.Server.Environment)
	defer zlog.Sync()

	redis, err := storage.NewRedis(
		cfg.Redis.GetRedisAddr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		zlog.Fatal("Failed to connect to redis", err)
	}
	defer redis.Close()

	postgres, err := storage.NewPostgres(cfg.Postgres.DSN)
	if err != nil {
		zlog.Fatal("Failed to connect to postgres", err)
	}
	defer postgres.Close()

	if err := postgres.AutoMigrate(); err != nil {
		zlog.Fatal("Failed to run migrations", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Usage.Region),
	)
	if err != nil {
		zlog.Fatal("Failed to load AWS config", err)
	}

	emitter := usage.NewQueueEmitter(
		sqs.NewFromConfig(awsCfg),
		cfg.Usage.QueueURL,
		cfg.Usage.BufferSize,
		zlog,
	)
	defer emitter.Close()

	srv := server.New(cfg, redis, postgres, emitter, zlog)

	go func() {
		addr := ":" + cfg.Server.Port
		if err := srv.Run(addr); err != nil {
			zlog.Fatal("Server failed to start", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("Server forced to shutdown", err)
	}

	zlog.Info("Server exited")
}
