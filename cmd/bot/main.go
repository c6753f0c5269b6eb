package main

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"driveport/config"
	"driveport/internal/audit"
	"driveport/internal/bot"
	"driveport/internal/classify"
	"driveport/internal/orchestrator"
	"driveport/internal/policy"
	redcache "driveport/internal/redis"
	"driveport/internal/resolver"
	"driveport/internal/server"
	"driveport/internal/session"
	"driveport/internal/storage"
	"driveport/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	ginMode := "debug"
	if cfg.AppMode == "release" || cfg.AppMode == logger.ProductionMode {
		mode = logger.ProductionMode
		ginMode = "release"
	}
	logg := logger.New(mode)
	defer logg.Sync()

	ctx := context.Background()

	gateway, err := storage.NewS3Gateway(ctx, storage.Config{
		Region:      cfg.S3Region,
		Bucket:      cfg.S3Bucket,
		Endpoint:    cfg.S3Endpoint,
		Credentials: storage.StaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3SessionToken),
	}, logg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	var listingCache resolver.ListingCache
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cache := redcache.NewFolderCache(client, cfg.FolderCacheTTL)
		if err := cache.Ping(ctx); err != nil {
			logg.Warnf("redis unavailable, folder cache disabled: %v", err)
		} else {
			listingCache = cache
		}
	}

	table := policy.Default()
	classifier := classify.New(table, cfg.VideoTransportCapMB)
	sessions := session.NewStore(cfg.PromptInterval)
	destinations := resolver.New(gateway, listingCache, cfg.RootFolder, cfg.ExcludedFolders, logg)
	fetcher := server.NewHTTPFetcher(int64(table.MaxSizeMB()) << 20)
	uploader := orchestrator.New(gateway, fetcher, cfg.ScratchDir, logg)
	auditor := audit.New(gateway, cfg.StatisticsFolder, cfg.StatisticsFile, logg)

	hub := server.NewHub()
	engine := bot.New(bot.Deps{
		Log:          logg,
		Table:        table,
		Classify:     classifier,
		Sessions:     sessions,
		Resolver:     destinations,
		Uploader:     uploader,
		Auditor:      auditor,
		Messenger:    hub,
		RootName:     cfg.RootFolder,
		UseAllowList: cfg.UseAllowedUsers,
		AllowedUsers: cfg.AllowedUsers,
	})

	tokens := server.NewTokenService(cfg.JWTSecret, time.Duration(cfg.JWTExpiryMin)*time.Minute)
	ws := server.NewWSHandler(tokens, hub, engine, logg)
	router := server.NewRouter(ginMode, cfg.AdminSecret, tokens, ws, logg)

	logg.Infof("starting on port %s", cfg.AppPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
