package rag

// Config RAG 模块配置
type Config struct {
	// 索引持久化文件路径（由 Storage 配置推导）
	IndexFile string `json:"index_file"`

	// Embedding 配置
	EmbeddingDims int `json:"embedding_dims"`

	// 检索配置
	DefaultTopK      int     `json:"default_top_k"`
	DefaultThreshold float64 `json:"default_threshold"`

	// 文本预览截断长度（indexed-datasets 列表）
	PreviewLength int `json:"preview_length"`

	// 缓存配置
	CacheTTL int `json:"cache_ttl"` // 缓存 TTL（秒），0=禁用
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		EmbeddingDims:    384,
		DefaultTopK:      5,
		DefaultThreshold: 0.1,
		PreviewLength:    100,
		CacheTTL:         0,
	}
}

// HasCache 是否启用检索缓存
func (c *Config) HasCache() bool {
	return c.CacheTTL > 0
}
