package analyze

import "sort"

// BatchResult 批量分析结果及跨文本聚合
type BatchResult struct {
	TotalTexts          int        `json:"total_texts"`
	Results             []Analysis `json:"results"`
	AggregatedEntities  []Entity   `json:"aggregated_entities,omitempty"`
	AggregatedKeywords  []Keyword  `json:"aggregated_keywords,omitempty"`
	OverallSentiment    *Sentiment `json:"overall_sentiment,omitempty"`
}

// AnalyzeBatch 逐条分析并聚合：实体按文本去重计数、
// 关键词累计得分、情感取平均分后重新归类。
func (a *Analyzer) AnalyzeBatch(texts []string, caps Capabilities) *BatchResult {
	result := &BatchResult{
		TotalTexts: len(texts),
		Results:    make([]Analysis, 0, len(texts)),
	}

	entityCounts := make(map[string]*Entity)
	keywordScores := make(map[string]*Keyword)
	sentimentSum := 0.0
	sentimentCount := 0

	for _, text := range texts {
		analysis := a.Analyze(text, caps)
		result.Results = append(result.Results, *analysis)

		for _, ent := range analysis.Entities {
			key := ent.Label + "|" + ent.Text
			if agg, ok := entityCounts[key]; ok {
				agg.Confidence++
			} else {
				entityCounts[key] = &Entity{Text: ent.Text, Label: ent.Label, Confidence: 1}
			}
		}
		for _, kw := range analysis.Keywords {
			if agg, ok := keywordScores[kw.Keyword]; ok {
				agg.Score += kw.Score
			} else {
				copied := kw
				keywordScores[kw.Keyword] = &copied
			}
		}
		if analysis.Sentiment != nil {
			sentimentSum += analysis.Sentiment.Score
			sentimentCount++
		}
	}

	if caps.Entities {
		result.AggregatedEntities = topEntities(entityCounts, 20)
	}
	if caps.Keywords {
		result.AggregatedKeywords = topKeywords(keywordScores, 20)
	}
	if caps.Sentiment && sentimentCount > 0 {
		avg := sentimentSum / float64(sentimentCount)
		label := "neutral"
		switch {
		case avg > 0.2:
			label = "positive"
		case avg < -0.2:
			label = "negative"
		}
		result.OverallSentiment = &Sentiment{
			Sentiment: label,
			Score:     round3(avg),
		}
	}

	return result
}

// topEntities 按出现次数降序取前 n，Confidence 字段承载计数
func topEntities(counts map[string]*Entity, n int) []Entity {
	entities := make([]Entity, 0, len(counts))
	for _, ent := range counts {
		entities = append(entities, *ent)
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Confidence != entities[j].Confidence {
			return entities[i].Confidence > entities[j].Confidence
		}
		return entities[i].Text < entities[j].Text
	})
	if len(entities) > n {
		entities = entities[:n]
	}
	return entities
}

func topKeywords(scores map[string]*Keyword, n int) []Keyword {
	keywords := make([]Keyword, 0, len(scores))
	for _, kw := range scores {
		keywords = append(keywords, *kw)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Score != keywords[j].Score {
			return keywords[i].Score > keywords[j].Score
		}
		return keywords[i].Keyword < keywords[j].Keyword
	})
	if len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords
}
