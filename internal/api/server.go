package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BlacMeW/DataForge-Reader/internal/analyze"
	"github.com/BlacMeW/DataForge-Reader/internal/annotate"
	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
	"github.com/BlacMeW/DataForge-Reader/internal/export"
	"github.com/BlacMeW/DataForge-Reader/internal/extract"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
	"github.com/BlacMeW/DataForge-Reader/internal/templates"
)

// ServerConfig 服务配置
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	UploadDir    string
	ExportsDir   string
	MaxUploadMB  int
	JWTSecret    string // 留空则不启用鉴权
	JWTIssuer    string
}

// DefaultServerConfig 默认配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         8000,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		MaxUploadMB:  50,
	}
}

// Server HTTP 服务器
type Server struct {
	config      *ServerConfig
	ragService  *rag.Service
	registry    *extract.Registry
	parseCache  *extract.Cache
	exportStore *export.Store
	writer      *export.Writer
	annotations *annotate.Store
	customTpls  *templates.CustomStore
	analyzer    *analyze.Analyzer
	httpSrv     *http.Server
}

// NewServer 创建服务器
func NewServer(config *ServerConfig, ragService *rag.Service) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:     config,
		ragService: ragService,
	}
}

// SetExtraction 设置解析组件
func (s *Server) SetExtraction(registry *extract.Registry, cache *extract.Cache) {
	s.registry = registry
	s.parseCache = cache
}

// SetExport 设置导出组件
func (s *Server) SetExport(store *export.Store, writer *export.Writer) {
	s.exportStore = store
	s.writer = writer
}

// SetAnnotations 设置标注存储
func (s *Server) SetAnnotations(store *annotate.Store) {
	s.annotations = store
}

// SetTemplates 设置自定义模板存储
func (s *Server) SetTemplates(store *templates.CustomStore) {
	s.customTpls = store
}

// SetAnalyzer 设置文本分析器
func (s *Server) SetAnalyzer(a *analyze.Analyzer) {
	s.analyzer = a
}

// Start 启动服务器
func (s *Server) Start() error {
	r := s.buildRouter()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("🚀 DataForge API server starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop 优雅停机
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler 返回 HTTP Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		if strings.TrimSpace(s.config.JWTSecret) != "" {
			r.Use(authMiddleware(&JWTConfig{
				Secret: s.config.JWTSecret,
				Issuer: s.config.JWTIssuer,
			}))
			applog.Info("🔒 JWT auth enabled")
		}

		NewRAGHandler(s.ragService).RegisterRoutes(r)

		if s.registry != nil && s.parseCache != nil {
			uploadHandler := NewUploadHandler(s.config.UploadDir, s.config.ExportsDir, s.config.MaxUploadMB)
			uploadHandler.RegisterRoutes(r)
			NewParseHandler(s.registry, s.parseCache, s.annotations, s.config.UploadDir).RegisterRoutes(r)
		}
		if s.exportStore != nil && s.writer != nil && s.parseCache != nil {
			NewExportHandler(s.parseCache, s.annotations, s.writer, s.exportStore).RegisterRoutes(r)
		}
		if s.annotations != nil {
			NewAnnotateHandler(s.annotations, s.parseCache).RegisterRoutes(r)
		}
		if s.customTpls != nil {
			NewTemplateHandler(s.customTpls).RegisterRoutes(r)
		}
		if s.analyzer != nil {
			NewMiningHandler(s.analyzer).RegisterRoutes(r)
		}
	})

	return r
}

// corsMiddleware CORS 中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
