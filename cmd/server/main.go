package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/BlacMeW/DataForge-Reader/internal/analyze"
	"github.com/BlacMeW/DataForge-Reader/internal/annotate"
	"github.com/BlacMeW/DataForge-Reader/internal/api"
	redisdb "github.com/BlacMeW/DataForge-Reader/internal/db/redis"
	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
	"github.com/BlacMeW/DataForge-Reader/internal/export"
	"github.com/BlacMeW/DataForge-Reader/internal/extract"
	"github.com/BlacMeW/DataForge-Reader/internal/platform/config"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
	"github.com/BlacMeW/DataForge-Reader/internal/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	for _, dir := range cfg.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			applog.Fatalf("❌ Failed to create storage dir %s: %v", dir, err)
		}
	}
	applog.Info("✅ Storage layout ready", "root", cfg.Storage.Root, "exports", cfg.Storage.ExportsDir)

	// 解析与导出组件
	registry := extract.NewRegistry()
	parseCache := extract.NewCache(cfg.Storage.CacheDir)
	exportStore := export.NewStore(cfg.Storage.ExportsDir)
	exportWriter := export.NewWriter(cfg.Storage.ExportsDir)
	annotations := annotate.NewStore(cfg.Storage.AnnotationsDir)
	customTemplates := templates.NewCustomStore(cfg.Storage.TemplatesDir)
	analyzer := analyze.NewAnalyzer()
	applog.Infof("✅ Extraction registry initialized (types: %s)", registry.SupportedTypes())

	// RAG 服务
	ragService := rag.NewService(&cfg.RAG, extract.NewProvider(parseCache), exportStore)
	ragService.SetEnricher(analyze.NewEnricher(analyzer))
	ragService.Load()

	if cfg.Redis.URL != "" {
		if opt, err := goredis.ParseURL(cfg.Redis.URL); err == nil {
			redisClient := goredis.NewClient(opt)
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = redisClient.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				applog.Warnf("⚠️  Redis ping failed, search cache disabled: %v", err)
			} else {
				ragService.SetCache(redisdb.NewSearchCache(redisClient, cfg.RAG.CacheTTL))
				applog.Infof("✅ RAG search cache initialized (TTL: %ds)", cfg.RAG.CacheTTL)
			}
		} else {
			applog.Warnf("⚠️  Redis URL invalid, search cache disabled: %v", err)
		}
	} else {
		applog.Info("ℹ️  No REDIS_URL set, search cache disabled")
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	serverConfig.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	serverConfig.UploadDir = cfg.Storage.UploadsDir
	serverConfig.ExportsDir = cfg.Storage.ExportsDir
	serverConfig.MaxUploadMB = cfg.Upload.MaxFileMB
	serverConfig.JWTSecret = cfg.Auth.JWTSecret
	serverConfig.JWTIssuer = cfg.Auth.JWTIssuer

	server := api.NewServer(serverConfig, ragService)
	server.SetExtraction(registry, parseCache)
	server.SetExport(exportStore, exportWriter)
	server.SetAnnotations(annotations)
	server.SetTemplates(customTemplates)
	server.SetAnalyzer(analyzer)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		applog.Info("🔄 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
		applog.Fatalf("❌ Server error: %v", err)
	}

	applog.Info("👋 Server stopped")
}
