package extract

// Paragraph 单个段落及其统计信息。
// 字段名与解析缓存的 JSON 布局保持一致。
type Paragraph struct {
	ID             string         `json:"id"`
	Page           int            `json:"page"`
	ParagraphIndex int            `json:"paragraph_index"`
	Text           string         `json:"text"`
	WordCount      int            `json:"word_count"`
	CharCount      int            `json:"char_count"`
	Annotations    map[string]any `json:"annotations"`
}

// ParsedDocument 一次解析的完整产物，缓存到磁盘供下游复用。
type ParsedDocument struct {
	FileID           string      `json:"file_id"`
	Filename         string      `json:"filename"`
	TotalPages       int         `json:"total_pages"`
	Paragraphs       []Paragraph `json:"paragraphs"`
	ExtractionMethod string      `json:"extraction_method"`
	ProcessingTime   float64     `json:"processing_time"`
}

// PageText 提取器输出的单页文本
type PageText struct {
	Page int
	Text string
}

// Extraction 提取器原始输出
type Extraction struct {
	Pages      []PageText
	Method     string
	TotalPages int
}
