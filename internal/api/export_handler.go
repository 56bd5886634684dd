package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BlacMeW/DataForge-Reader/internal/annotate"
	"github.com/BlacMeW/DataForge-Reader/internal/export"
	"github.com/BlacMeW/DataForge-Reader/internal/extract"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// ExportHandler 数据集导出 API：把解析缓存（含标注）
// 落成 CSV/JSONL 导出文件并提供下载。
type ExportHandler struct {
	cache       *extract.Cache
	annotations *annotate.Store
	writer      *export.Writer
	store       *export.Store
}

// NewExportHandler 创建导出处理器
func NewExportHandler(cache *extract.Cache, annotations *annotate.Store, writer *export.Writer, store *export.Store) *ExportHandler {
	return &ExportHandler{
		cache:       cache,
		annotations: annotations,
		writer:      writer,
		store:       store,
	}
}

// RegisterRoutes 注册导出路由
func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/export", h.Export)
	r.Get("/export/{fileID}", h.Download)
}

type exportRequest struct {
	FileID             string `json:"file_id"`
	Format             string `json:"format"`
	IncludeAnnotations bool   `json:"include_annotations"`
}

func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	req := exportRequest{IncludeAnnotations: true}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}
	if req.Format != "csv" && req.Format != "jsonl" {
		writeError(w, http.StatusBadRequest, "format must be 'csv' or 'jsonl'")
		return
	}

	doc, err := h.cache.Load(req.FileID)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "parsed document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load parsed document")
		return
	}

	if req.IncludeAnnotations && h.annotations != nil {
		if saved, err := h.annotations.Load(req.FileID); err == nil {
			for i := range doc.Paragraphs {
				if ann, ok := saved[doc.Paragraphs[i].ID]; ok {
					doc.Paragraphs[i].Annotations = ann
				}
			}
		}
	}

	path, err := h.writer.Write(doc, req.Format, req.IncludeAnnotations)
	if err != nil {
		applog.Error("[Export] Write failed", "file_id", req.FileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to write export")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_id":  req.FileID,
		"format":   req.Format,
		"rows":     len(doc.Paragraphs),
		"filename": filepath.Base(path),
	})
}

func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	format := r.URL.Query().Get("format")
	if format != "csv" && format != "jsonl" {
		writeError(w, http.StatusBadRequest, "format must be 'csv' or 'jsonl'")
		return
	}

	filename := fileID + "_export." + format
	path := filepath.Join(h.store.Dir(), filename)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}

	contentType := "text/csv"
	if format == "jsonl" {
		contentType = "application/x-ndjson"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strings.ReplaceAll(filename, `"`, ""))
	http.ServeFile(w, r, path)
}
