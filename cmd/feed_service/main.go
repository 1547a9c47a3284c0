package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat_feed_sync/internal/feed/app"
	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/internal/feed/repository"
	"chat_feed_sync/internal/feed/router"
	"chat_feed_sync/pkg/config"
	"chat_feed_sync/pkg/database"
	"chat_feed_sync/pkg/logger"
	testtool "chat_feed_sync/pkg/test_tool"
	"chat_feed_sync/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

const roomCacheTTL = 5 * time.Minute

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.FeedService, config.EnvConfig.FeedServiceLogPath)
	defer logger.Log.Sync()
	logger.Log.SetDebugMode(!config.IsProduction())

	cfg, err := config.LoadConfig[config.FeedService](config.EnvConfig.FeedService, config.EnvConfig.FeedServiceYAMLPath)
	if err != nil {
		logger.Log.Fatal("load config failed", zap.Error(err))
	}
	token.SetSecret(cfg.Token.Secret)
	testtool.StartPprof()

	ctx := context.Background()

	// 1. 建立 Mongo 連線 (room registry)
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoSQL.User, cfg.MongoSQL.Password, cfg.MongoSQL.Host, cfg.MongoSQL.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoSQL.RetryCount,
			RetryInterval: time.Duration(cfg.MongoSQL.RetryInterval),
		},
		cfg.MongoSQL.Database)
	if err != nil {
		logger.Log.Fatal("unable to connect to mongoDB after retries",
			zap.String("address", fmt.Sprintf("%s:%d", cfg.MongoSQL.Host, cfg.MongoSQL.Port)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	// 2. 建立 Redis 連線 (push + room cache)
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal("connect redis failed", zap.Error(err))
	}
	defer redisClient.Close()

	// 3. 建立 MinIO 連線 (attachments)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.BucketName,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("connect minio failed", zap.String("endpoint", cfg.MinIO.Endpoint), zap.Error(err))
	}

	// 4. 初始化 Repository
	registry := repository.NewCachedRoomRegistry(
		repository.NewMongoRoomRegistry(mongo.Database),
		database.NewRedisRepository[domain.Room](redisClient, repository.RoomCacheKeyPrefix),
		roomCacheTTL,
	)
	pubSub := repository.NewRedisPubSub(redisClient)
	fetcher := repository.NewHTTPAttachmentFetcher(0)
	uploader := repository.NewMinIOUploader(minioClient, cfg.MinIO)
	newTransport := func(authToken string) repository.MutationTransport {
		return repository.NewWebsocketMutationTransport(cfg.Transport, authToken)
	}

	// 5. 啟動 Fiber
	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.FeedServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r,
		app.NewFeedWebsocketHandler(registry, pubSub, fetcher, newTransport, cfg.Feed),
		app.NewAttachmentHandler(uploader, fetcher, []string{minioOrigin(cfg.MinIO)}),
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Log.Info("shutting down feed service")
		if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Error("shutdown failed", zap.Error(err))
		}
	}()

	port := ":" + cfg.Port
	logger.Log.Info("feed service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		logger.Log.Fatal("failed to start fiber", zap.Error(err))
	}
}

// minioOrigin base URL presigned attachment links start with
func minioOrigin(c config.MinIOConfig) string {
	scheme := "http://"
	if c.UseSSL {
		scheme = "https://"
	}
	return scheme + strings.TrimSuffix(c.Endpoint, "/") + "/" + c.BucketName + "/"
}
