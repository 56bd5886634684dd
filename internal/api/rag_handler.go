package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// RAGHandler 文档索引与检索 API
type RAGHandler struct {
	service *rag.Service
}

// NewRAGHandler 创建 RAG 处理器
func NewRAGHandler(service *rag.Service) *RAGHandler {
	return &RAGHandler{service: service}
}

// RegisterRoutes 注册 RAG 路由
func (h *RAGHandler) RegisterRoutes(r chi.Router) {
	r.Route("/rag", func(r chi.Router) {
		// 索引
		r.Post("/index", h.IndexDocument)
		r.Post("/index-dataset", h.BulkIndex)
		r.Post("/index-dataset-file", h.IndexExportedDataset)

		// 检索
		r.Post("/search", h.Search)
		r.Post("/context", h.BuildContext)

		// 管理
		r.Get("/stats", h.Stats)
		r.Get("/available-datasets", h.AvailableDatasets)
		r.Get("/indexed-datasets", h.IndexedDatasets)
		r.Delete("/dataset/{datasetID}", h.RemoveDataset)
	})
}

// --- 索引 ---

type indexRequest struct {
	FileID      string `json:"file_id"`
	DatasetName string `json:"dataset_name,omitempty"`
}

func (h *RAGHandler) IndexDocument(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	summary, err := h.service.Index(r.Context(), req.FileID, req.DatasetName)
	if err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			writeError(w, http.StatusNotFound, "parsed document not found")
			return
		}
		applog.Error("[RAG] Index failed", "file_id", req.FileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to index document")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type bulkIndexRequest struct {
	DatasetName  string `json:"dataset_name,omitempty"`
	MaxDocuments int    `json:"max_documents,omitempty"`
}

func (h *RAGHandler) BulkIndex(w http.ResponseWriter, r *http.Request) {
	var req bulkIndexRequest
	if r.Body != nil {
		// 请求体可整体省略，全部字段走默认值
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	summary, err := h.service.BulkIndex(r.Context(), req.DatasetName, req.MaxDocuments)
	if err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no parsed documents available for indexing")
			return
		}
		applog.Error("[RAG] Bulk index failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to index dataset")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *RAGHandler) IndexExportedDataset(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" {
		writeError(w, http.StatusBadRequest, "file_id is required")
		return
	}

	summary, err := h.service.IndexExportedDataset(r.Context(), req.FileID, req.DatasetName)
	if err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			writeError(w, http.StatusNotFound, "exported dataset not found")
			return
		}
		applog.Error("[RAG] Index exported dataset failed", "file_id", req.FileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to index exported dataset")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// --- 检索 ---

func (h *RAGHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req rag.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.service.Search(r.Context(), &req)
	if err != nil {
		applog.Error("[RAG] Search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *RAGHandler) BuildContext(w http.ResponseWriter, r *http.Request) {
	var req rag.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.service.BuildContext(r.Context(), &req)
	if err != nil {
		applog.Error("[RAG] Context build failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build context")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- 管理 ---

func (h *RAGHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Stats())
}

func (h *RAGHandler) AvailableDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.service.AvailableDatasets(r.Context())
	if err != nil {
		applog.Error("[RAG] List available datasets failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list available datasets")
		return
	}
	if datasets == nil {
		datasets = []rag.DatasetInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

func (h *RAGHandler) IndexedDatasets(w http.ResponseWriter, r *http.Request) {
	summaries := h.service.IndexedDatasets()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": summaries,
		"count":    len(summaries),
	})
}

func (h *RAGHandler) RemoveDataset(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	removed, err := h.service.RemoveDataset(r.Context(), datasetID)
	if err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			writeError(w, http.StatusNotFound, "dataset not found in index")
			return
		}
		applog.Error("[RAG] Remove dataset failed", "dataset_id", datasetID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove dataset")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataset_id":        datasetID,
		"removed_documents": removed,
	})
}
