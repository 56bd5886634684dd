package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
	"github.com/BlacMeW/DataForge-Reader/internal/templates"
)

// TemplateHandler 数据集模板 API
type TemplateHandler struct {
	custom *templates.CustomStore
}

// NewTemplateHandler 创建模板处理器
func NewTemplateHandler(custom *templates.CustomStore) *TemplateHandler {
	return &TemplateHandler{custom: custom}
}

// RegisterRoutes 注册模板路由
func (h *TemplateHandler) RegisterRoutes(r chi.Router) {
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/custom", h.CreateCustom)
		r.Post("/validate", h.Validate)
		r.Get("/{templateID}", h.Get)
		r.Delete("/{templateID}", h.DeleteCustom)
		r.Get("/{templateID}/export-sample", h.ExportSample)
	})
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	all := templates.Predefined()
	if custom, err := h.custom.List(); err == nil {
		all = append(all, custom...)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": all,
		"count":     len(all),
	})
}

// lookup 先查内置再查自定义
func (h *TemplateHandler) lookup(id string) (templates.Template, bool) {
	if t, ok := templates.Lookup(id); ok {
		return t, true
	}
	t, err := h.custom.Get(id)
	if err != nil {
		return templates.Template{}, false
	}
	return t, true
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	t, ok := h.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type customTemplateRequest struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Fields           []templates.Field `json:"fields"`
	AnnotationSchema map[string]any    `json:"annotation_schema"`
}

func (h *TemplateHandler) CreateCustom(w http.ResponseWriter, r *http.Request) {
	var req customTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	t, err := h.custom.Create(req.Name, req.Description, req.Fields, req.AnnotationSchema)
	if err != nil {
		applog.Warn("[Templates] Create custom failed", "name", req.Name, "error", err)
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

func (h *TemplateHandler) DeleteCustom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")

	if _, ok := templates.Lookup(id); ok {
		writeError(w, http.StatusBadRequest, "predefined templates cannot be deleted")
		return
	}

	if err := h.custom.Delete(id); err != nil {
		if errors.Is(err, rag.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *TemplateHandler) ExportSample(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "templateID")
	t, ok := h.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"template":    t,
		"sample_data": templates.SampleData(t),
		"format":      t.ExportFormat,
	})
}

func (h *TemplateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, templates.Validate(raw))
}
