package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BlacMeW/DataForge-Reader/internal/annotate"
	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
	"github.com/BlacMeW/DataForge-Reader/internal/extract"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// AnnotateHandler 段落标注 API
type AnnotateHandler struct {
	store *annotate.Store
	cache *extract.Cache
}

// NewAnnotateHandler 创建标注处理器
func NewAnnotateHandler(store *annotate.Store, cache *extract.Cache) *AnnotateHandler {
	return &AnnotateHandler{store: store, cache: cache}
}

// RegisterRoutes 注册标注路由
func (h *AnnotateHandler) RegisterRoutes(r chi.Router) {
	r.Post("/annotate", h.Save)
	r.Get("/annotate/{fileID}", h.Get)
	r.Delete("/annotate/{fileID}/{paragraphID}", h.Delete)
}

type annotateRequest struct {
	FileID      string         `json:"file_id"`
	ParagraphID string         `json:"paragraph_id"`
	Annotations map[string]any `json:"annotations"`
}

func (h *AnnotateHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" || req.ParagraphID == "" {
		writeError(w, http.StatusBadRequest, "file_id and paragraph_id are required")
		return
	}
	if req.Annotations == nil {
		req.Annotations = map[string]any{}
	}

	// 标注必须挂在已解析的文件上
	if h.cache != nil && !h.cache.Exists(req.FileID) {
		writeError(w, http.StatusNotFound, "parsed document not found")
		return
	}

	if err := h.store.Save(req.FileID, req.ParagraphID, req.Annotations); err != nil {
		applog.Error("[Annotate] Save failed", "file_id", req.FileID, "paragraph_id", req.ParagraphID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save annotation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_id":      req.FileID,
		"paragraph_id": req.ParagraphID,
		"annotations":  req.Annotations,
	})
}

func (h *AnnotateHandler) Get(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	all, err := h.store.Load(fileID)
	if err != nil {
		applog.Error("[Annotate] Load failed", "file_id", fileID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load annotations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"file_id":     fileID,
		"annotations": all,
	})
}

func (h *AnnotateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	paragraphID := chi.URLParam(r, "paragraphID")

	if err := h.store.Delete(fileID, paragraphID); err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			writeError(w, http.StatusNotFound, "annotation not found")
			return
		}
		applog.Error("[Annotate] Delete failed", "file_id", fileID, "paragraph_id", paragraphID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete annotation")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"file_id":      fileID,
		"paragraph_id": paragraphID,
	})
}
