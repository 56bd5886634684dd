package rag

import "context"

// ── 协作方契约（由核心定义，外围实现）──────────────────────────

// ParagraphRecord 解析协作方提供的段落记录。
type ParagraphRecord struct {
	ID             string         `json:"id"`
	Page           int            `json:"page"`
	ParagraphIndex int            `json:"paragraph_index"`
	Text           string         `json:"text"`
	WordCount      int            `json:"word_count"`
	CharCount      int            `json:"char_count"`
	Annotations    map[string]any `json:"annotations,omitempty"`
}

// ParsedSource 一个已解析源的全部段落。
type ParsedSource struct {
	FileID           string            `json:"file_id"`
	Filename         string            `json:"filename"`
	ExtractionMethod string            `json:"extraction_method"`
	Paragraphs       []ParagraphRecord `json:"paragraphs"`
}

// ParsedProvider 解析缓存读取接口。
// Load 在源不存在时返回 wrap 过的 ErrNotFound。
type ParsedProvider interface {
	Load(ctx context.Context, fileID string) (*ParsedSource, error)
	List(ctx context.Context) ([]string, error)
}

// DatasetInfo 导出数据集的概要信息。
type DatasetInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Format   string `json:"format"`
	RowCount int    `json:"row_count"`
	Filename string `json:"filename"`
}

// ExportedDataset 导出协作方提供的表格数据。
// Fields 保留字段声明顺序（CSV 表头 / JSONL 键出现顺序）。
type ExportedDataset struct {
	ID     string              `json:"id"`
	Name   string              `json:"name"`
	Format string              `json:"format"`
	Fields []string            `json:"fields"`
	Rows   []map[string]string `json:"rows"`
}

// ExportProvider 导出数据集读取接口。
type ExportProvider interface {
	Load(ctx context.Context, fileID string) (*ExportedDataset, error)
	List(ctx context.Context) ([]DatasetInfo, error)
}

// MetadataEnricher 可选的 NLP 元数据富化接口，
// 索引时对 fullText 生成附加元数据（keywords/sentiment 等）。
type MetadataEnricher interface {
	Enrich(text string) map[string]string
}

// SearchCacheStore 可选的检索结果缓存接口。
type SearchCacheStore interface {
	Get(ctx context.Context, req *SearchRequest) (*SearchResult, bool)
	Set(ctx context.Context, req *SearchRequest, result *SearchResult)
	InvalidateAll(ctx context.Context)
}
