package rag

// Document 索引的最小单元：一个段落或一行导出数据。
// ID 由 (datasetId, 源内子标识) 确定性推导，保证重复索引幂等。
type Document struct {
	ID          string         `json:"id"`
	DatasetID   string         `json:"datasetId"`
	DatasetName string         `json:"datasetName"`
	FullText    string         `json:"fullText"`
	Prompt      string         `json:"prompt"`
	Completion  string         `json:"completion"`
	Intent      string         `json:"intent"`
	Category    string         `json:"category"`
	RowIndex    int            `json:"rowIndex"`
	Metadata    map[string]any `json:"metadata"`
}

// 文档类别
const (
	CategoryParagraph  = "paragraph"
	CategoryDatasetRow = "dataset_row"
)

// IndexStats 索引统计，随每次变更重算。
type IndexStats struct {
	TotalDocuments  int    `json:"total_documents"`
	IndexedDatasets int    `json:"indexed_datasets"`
	LastUpdated     string `json:"last_updated,omitempty"`
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query      string   `json:"query"`
	TopK       int      `json:"topK,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	DatasetIDs []string `json:"datasetIds,omitempty"`
}

// SearchMatch 单条检索结果
type SearchMatch struct {
	Document       Document `json:"document"`
	Similarity     float64  `json:"similarity"`
	RelevanceScore float64  `json:"relevanceScore"`
}

// SearchResult 检索结果
type SearchResult struct {
	Results      []SearchMatch `json:"results"`
	TotalResults int           `json:"total_results"`
	Query        string        `json:"query,omitempty"`
}

// ContextEntry 上下文条目（按相关度排序）
type ContextEntry struct {
	Source         string  `json:"source"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// ContextResult 上下文拼装结果
type ContextResult struct {
	Prompt       string         `json:"prompt"`
	Context      []ContextEntry `json:"context"`
	HasContext   bool           `json:"hasContext"`
	ContextCount int            `json:"contextCount"`
}

// IndexSummary 单源索引结果
type IndexSummary struct {
	FileID         string `json:"file_id"`
	DatasetName    string `json:"dataset_name"`
	IndexedCount   int    `json:"indexed_count"`
	TotalDocuments int    `json:"total_documents"`
}

// BulkFailure 批量索引中单个源的失败记录
type BulkFailure struct {
	FileID string `json:"file_id"`
	Error  string `json:"error"`
}

// BulkIndexSummary 批量索引结果。单源失败不中断批次，
// 只记录到 Failures 中，整体仍按部分成功返回。
type BulkIndexSummary struct {
	CollectionName   string        `json:"collection_name"`
	FilesProcessed   int           `json:"files_processed"`
	DocumentsIndexed int           `json:"documents_indexed"`
	Failures         []BulkFailure `json:"failures,omitempty"`
	TotalDocuments   int           `json:"total_documents"`
}

// StatsResult 索引统计查询结果
type StatsResult struct {
	TotalDocuments    int      `json:"total_documents"`
	IndexedDatasets   int      `json:"indexed_datasets"`
	LastUpdated       string   `json:"last_updated,omitempty"`
	IndexedDatasetIDs []string `json:"indexed_dataset_ids"`
	TotalEmbeddings   int      `json:"total_embeddings"`
}

// DocumentPreview indexed-datasets 列表中的文档预览
type DocumentPreview struct {
	ID          string `json:"id"`
	RowIndex    int    `json:"rowIndex"`
	TextPreview string `json:"textPreview"`
}

// IndexedDatasetSummary 按 datasetId 分组的索引内容概览
type IndexedDatasetSummary struct {
	DatasetID     string            `json:"datasetId"`
	DatasetName   string            `json:"datasetName"`
	Category      string            `json:"category"`
	DocumentCount int               `json:"documentCount"`
	Documents     []DocumentPreview `json:"documents"`
}
