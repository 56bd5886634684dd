package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BlacMeW/DataForge-Reader/internal/annotate"
	"github.com/BlacMeW/DataForge-Reader/internal/extract"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// ParseHandler 文档解析 API。解析结果缓存到磁盘，
// 重复解析同一文件直接返回缓存（force_reparse 可跳过）。
type ParseHandler struct {
	registry    *extract.Registry
	cache       *extract.Cache
	annotations *annotate.Store
	uploadDir   string
}

// NewParseHandler 创建解析处理器
func NewParseHandler(registry *extract.Registry, cache *extract.Cache, annotations *annotate.Store, uploadDir string) *ParseHandler {
	return &ParseHandler{
		registry:    registry,
		cache:       cache,
		annotations: annotations,
		uploadDir:   uploadDir,
	}
}

// RegisterRoutes 注册解析路由
func (h *ParseHandler) RegisterRoutes(r chi.Router) {
	r.Post("/parse", h.Parse)
	r.Get("/parse/{fileID}", h.GetParsed)
}

type parseRequest struct {
	FileID       string `json:"file_id"`
	ForceReparse bool   `json:"force_reparse,omitempty"`
}

func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	if !req.ForceReparse && h.cache.Exists(req.FileID) {
		doc, err := h.cache.Load(req.FileID)
		if err == nil {
			writeJSON(w, http.StatusOK, h.withAnnotations(doc))
			return
		}
		applog.Warn("[Parse] Cache unreadable, reparsing", "file_id", req.FileID, "error", err)
	}

	path, filename, err := h.findUpload(req.FileID)
	if err != nil {
		writeError(w, http.StatusNotFound, "uploaded file not found")
		return
	}

	extractor, err := h.registry.Get(filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open file")
		return
	}
	defer f.Close()

	start := time.Now()
	extraction, err := extractor.Extract(f, filename)
	if err != nil {
		applog.Error("[Parse] Extraction failed", "file_id", req.FileID, "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to extract text")
		return
	}

	doc := &extract.ParsedDocument{
		FileID:           req.FileID,
		Filename:         filename,
		TotalPages:       extraction.TotalPages,
		Paragraphs:       extract.BuildParagraphs(extraction),
		ExtractionMethod: extraction.Method,
		ProcessingTime:   time.Since(start).Seconds(),
	}

	if err := h.cache.Save(doc); err != nil {
		applog.Warn("[Parse] Could not write parse cache", "file_id", req.FileID, "error", err)
	}

	applog.Info("[Parse] Document parsed",
		"file_id", req.FileID,
		"filename", filename,
		"method", doc.ExtractionMethod,
		"paragraphs", len(doc.Paragraphs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	writeJSON(w, http.StatusOK, doc)
}

func (h *ParseHandler) GetParsed(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	doc, err := h.cache.Load(fileID)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "parsed document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load parsed document")
		return
	}

	writeJSON(w, http.StatusOK, h.withAnnotations(doc))
}

// withAnnotations 把已保存的标注合并进段落
func (h *ParseHandler) withAnnotations(doc *extract.ParsedDocument) *extract.ParsedDocument {
	if h.annotations == nil {
		return doc
	}
	saved, err := h.annotations.Load(doc.FileID)
	if err != nil || len(saved) == 0 {
		return doc
	}

	for i := range doc.Paragraphs {
		if ann, ok := saved[doc.Paragraphs[i].ID]; ok {
			doc.Paragraphs[i].Annotations = ann
		}
	}
	return doc
}

// findUpload 按 file_id 前缀在上传目录定位源文件
func (h *ParseHandler) findUpload(fileID string) (path, filename string, err error) {
	entries, err := os.ReadDir(h.uploadDir)
	if err != nil {
		return "", "", err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) == fileID {
			return filepath.Join(h.uploadDir, name), name, nil
		}
	}
	return "", "", fmt.Errorf("no upload for file id %s", fileID)
}
