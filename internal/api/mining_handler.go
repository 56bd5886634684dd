package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BlacMeW/DataForge-Reader/internal/analyze"
)

// MiningHandler 文本分析 API
type MiningHandler struct {
	analyzer *analyze.Analyzer
}

// NewMiningHandler 创建分析处理器
func NewMiningHandler(analyzer *analyze.Analyzer) *MiningHandler {
	return &MiningHandler{analyzer: analyzer}
}

// RegisterRoutes 注册分析路由
func (h *MiningHandler) RegisterRoutes(r chi.Router) {
	r.Route("/mine", func(r chi.Router) {
		r.Post("/analyze", h.Analyze)
		r.Post("/batch-analyze", h.BatchAnalyze)
	})
}

type analyzeRequest struct {
	Text              string `json:"text"`
	IncludeEntities   *bool  `json:"include_entities,omitempty"`
	IncludeKeywords   *bool  `json:"include_keywords,omitempty"`
	IncludeSentiment  *bool  `json:"include_sentiment,omitempty"`
	IncludeStatistics *bool  `json:"include_statistics,omitempty"`
	IncludeSummary    *bool  `json:"include_summary,omitempty"`
	TopKeywords       int    `json:"top_keywords,omitempty"`
}

// capabilities 未显式给出的维度按默认开启处理
func (r *analyzeRequest) capabilities(defaults analyze.Capabilities) analyze.Capabilities {
	caps := defaults
	if r.IncludeEntities != nil {
		caps.Entities = *r.IncludeEntities
	}
	if r.IncludeKeywords != nil {
		caps.Keywords = *r.IncludeKeywords
	}
	if r.IncludeSentiment != nil {
		caps.Sentiment = *r.IncludeSentiment
	}
	if r.IncludeStatistics != nil {
		caps.Statistics = *r.IncludeStatistics
	}
	if r.IncludeSummary != nil {
		caps.Summary = *r.IncludeSummary
	}
	if r.TopKeywords > 0 {
		caps.TopKeywords = r.TopKeywords
	}
	return caps
}

func (h *MiningHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	caps := req.capabilities(analyze.DefaultCapabilities())
	writeJSON(w, http.StatusOK, h.analyzer.Analyze(req.Text, caps))
}

type batchAnalyzeRequest struct {
	analyzeRequest
	Texts []string `json:"texts"`
}

func (h *MiningHandler) BatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req batchAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "texts is required")
		return
	}
	if len(req.Texts) > 100 {
		writeError(w, http.StatusBadRequest, "too many texts, maximum is 100")
		return
	}

	// 批量默认不做 statistics/summary，与单条分析的默认不同
	defaults := analyze.DefaultCapabilities()
	defaults.Statistics = false
	defaults.Summary = false
	caps := req.capabilities(defaults)

	writeJSON(w, http.StatusOK, h.analyzer.AnalyzeBatch(req.Texts, caps))
}
