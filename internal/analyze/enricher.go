package analyze

import "strings"

// Enricher 把分析器适配为索引期的元数据富化器，
// 为每个文档附加关键词与情感标签。
type Enricher struct {
	analyzer *Analyzer
	topN     int
}

// NewEnricher 创建富化器
func NewEnricher(analyzer *Analyzer) *Enricher {
	return &Enricher{analyzer: analyzer, topN: 5}
}

// Enrich 返回附加到文档元数据的键值。
// 文本里没有可提取内容时返回空 map。
func (e *Enricher) Enrich(text string) map[string]string {
	meta := make(map[string]string)

	if keywords := e.analyzer.ExtractKeywords(text, e.topN); len(keywords) > 0 {
		names := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			names = append(names, kw.Keyword)
		}
		meta["keywords"] = strings.Join(names, ", ")
	}

	if sentiment := e.analyzer.AnalyzeSentiment(text); sentiment.Sentiment != "neutral" {
		meta["sentiment"] = sentiment.Sentiment
	}

	return meta
}
