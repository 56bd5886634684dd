package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
)

// Provider 把解析缓存适配为检索域的 ParsedProvider
type Provider struct {
	cache *Cache
}

// NewProvider 创建解析源提供者
func NewProvider(cache *Cache) *Provider {
	return &Provider{cache: cache}
}

// Load 读取指定源的段落。缓存不存在时包装 rag.ErrNotFound。
func (p *Provider) Load(ctx context.Context, fileID string) (*rag.ParsedSource, error) {
	doc, err := p.cache.Load(fileID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document %s not parsed yet: %w", fileID, rag.ErrNotFound)
		}
		return nil, err
	}

	paragraphs := make([]rag.ParagraphRecord, 0, len(doc.Paragraphs))
	for _, para := range doc.Paragraphs {
		paragraphs = append(paragraphs, rag.ParagraphRecord{
			ID:             para.ID,
			Page:           para.Page,
			ParagraphIndex: para.ParagraphIndex,
			Text:           para.Text,
			WordCount:      para.WordCount,
			CharCount:      para.CharCount,
			Annotations:    para.Annotations,
		})
	}

	return &rag.ParsedSource{
		FileID:           doc.FileID,
		Filename:         doc.Filename,
		ExtractionMethod: doc.ExtractionMethod,
		Paragraphs:       paragraphs,
	}, nil
}

// List 列出全部已解析源的 fileID
func (p *Provider) List(ctx context.Context) ([]string, error) {
	return p.cache.List()
}
