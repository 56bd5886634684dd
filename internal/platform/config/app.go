package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
)

// AppConfig 全局配置。启动时统一加载，再按模块提取使用。
type AppConfig struct {
	LogLevel  string        `json:"log_level"`
	LogFormat string        `json:"log_format"`
	Server    ServerConfig  `json:"server"`
	Storage   StorageConfig `json:"storage"`
	Upload    UploadConfig  `json:"upload"`
	Redis     RedisConfig   `json:"redis"`
	Auth      AuthConfig    `json:"auth"`
	RAG       rag.Config    `json:"rag"`
}

type ServerConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

// StorageConfig 本地存储目录布局。
// Uploads/Cache/Annotations/RAG 默认从 Root 推导，Exports 独立。
type StorageConfig struct {
	Root           string `json:"root"`
	UploadsDir     string `json:"uploads_dir"`
	CacheDir       string `json:"cache_dir"`
	AnnotationsDir string `json:"annotations_dir"`
	TemplatesDir   string `json:"templates_dir"`
	ExportsDir     string `json:"exports_dir"`
}

type UploadConfig struct {
	MaxFileMB int `json:"max_file_mb"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	JWTIssuer string `json:"jwt_issuer"`
}

// Default 返回默认配置。
func Default() *AppConfig {
	ragCfg := rag.DefaultConfig()
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8000,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
		},
		Storage: StorageConfig{
			Root:       "./storage",
			ExportsDir: "./dataset_exports",
		},
		Upload: UploadConfig{
			MaxFileMB: 50,
		},
		RAG: *ragCfg,
	}
}

// Load 加载全局配置：默认值 -> 配置文件 -> 环境变量。
// 配置文件路径通过 APP_CONFIG_FILE 指定（JSON）。
func Load() (*AppConfig, error) {
	// .env 非必需，缺失忽略
	_ = godotenv.Load()

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)

	// 与原始部署保持相同的环境变量名
	applyString("DATAFORGE_STORAGE_DIR", &c.Storage.Root)
	applyString("DATAFORGE_UPLOADS_DIR", &c.Storage.UploadsDir)
	applyString("DATAFORGE_EXPORTS_DIR", &c.Storage.ExportsDir)

	applyInt("UPLOAD_MAX_FILE_MB", &c.Upload.MaxFileMB)

	applyString("REDIS_URL", &c.Redis.URL)

	applyString("JWT_SECRET", &c.Auth.JWTSecret)
	applyString("JWT_ISSUER", &c.Auth.JWTIssuer)

	// RAG 环境变量
	applyInt("RAG_EMBEDDING_DIMS", &c.RAG.EmbeddingDims)
	applyInt("RAG_DEFAULT_TOP_K", &c.RAG.DefaultTopK)
	applyFloat64("RAG_DEFAULT_THRESHOLD", &c.RAG.DefaultThreshold)
	applyInt("RAG_PREVIEW_LENGTH", &c.RAG.PreviewLength)
	applyInt("RAG_CACHE_TTL", &c.RAG.CacheTTL)
}

func (c *AppConfig) normalize() {
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = filepath.Join(c.Storage.Root, "uploads")
	}
	if c.Storage.CacheDir == "" {
		c.Storage.CacheDir = filepath.Join(c.Storage.Root, "cache")
	}
	if c.Storage.AnnotationsDir == "" {
		c.Storage.AnnotationsDir = filepath.Join(c.Storage.Root, "annotations")
	}
	if c.Storage.TemplatesDir == "" {
		c.Storage.TemplatesDir = filepath.Join(c.Storage.Root, "templates")
	}
	if c.RAG.IndexFile == "" {
		c.RAG.IndexFile = filepath.Join(c.Storage.Root, "rag", "rag_index.json")
	}
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.Storage.Root) == "" {
		return fmt.Errorf("storage root is required (DATAFORGE_STORAGE_DIR)")
	}
	if c.Upload.MaxFileMB <= 0 {
		return fmt.Errorf("upload max file size must be positive")
	}
	if c.RAG.EmbeddingDims <= 0 {
		return fmt.Errorf("RAG embedding dims must be positive")
	}
	return nil
}

// Dirs 返回启动时需要确保存在的目录列表。
func (c *AppConfig) Dirs() []string {
	return []string{
		c.Storage.Root,
		c.Storage.UploadsDir,
		c.Storage.CacheDir,
		c.Storage.AnnotationsDir,
		c.Storage.TemplatesDir,
		c.Storage.ExportsDir,
		filepath.Dir(c.RAG.IndexFile),
	}
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyFloat64(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*target = n
		}
	}
}
