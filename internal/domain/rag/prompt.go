package rag

import (
	"context"
	"fmt"
	"strings"
)

// systemPreamble 下游生成调用的固定系统前导
const systemPreamble = "You are a helpful document analysis assistant."

// contextInstruction 提示词末尾的固定指令
const contextInstruction = "Please answer the user's query using the provided context when relevant."

// BuildContext 把检索结果拼装为单条提示词 + 结构化上下文列表。
// 无结果时返回仅含前导与原始 query 的最小提示词，hasContext=false。
func (s *Service) BuildContext(ctx context.Context, req *SearchRequest) (*ContextResult, error) {
	result, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(result.Results) == 0 {
		return &ContextResult{
			Prompt:       fmt.Sprintf("%s\n\nUser Query: %s", systemPreamble, req.Query),
			Context:      []ContextEntry{},
			HasContext:   false,
			ContextCount: 0,
		}, nil
	}

	entries := make([]ContextEntry, 0, len(result.Results))
	for _, match := range result.Results {
		doc := match.Document
		entries = append(entries, ContextEntry{
			Source:         fmt.Sprintf("%s (Page %d)", doc.DatasetName, pageOf(doc)),
			Content:        doc.FullText,
			RelevanceScore: match.RelevanceScore,
		})
	}

	return &ContextResult{
		Prompt:       renderPrompt(req.Query, entries),
		Context:      entries,
		HasContext:   true,
		ContextCount: len(entries),
	}, nil
}

// renderPrompt 拼接完整提示词：前导 + Retrieved Context 段
//（1 起始编号、相关度百分比、来源、内容）+ 原始 query + 固定指令。
func renderPrompt(query string, entries []ContextEntry) string {
	sections := make([]string, 0, len(entries))
	for i, entry := range entries {
		sections = append(sections, fmt.Sprintf(
			"[Context %d] (Relevance: %.1f%%)\nSource: %s\nContent: %s\n",
			i+1, entry.RelevanceScore*100, entry.Source, entry.Content,
		))
	}

	var sb strings.Builder
	sb.WriteString(systemPreamble)
	sb.WriteString("\n\n")
	sb.WriteString("Retrieved Context:\n")
	sb.WriteString(strings.Join(sections, "\n"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("User Query: %s", query))
	sb.WriteString("\n\n")
	sb.WriteString(contextInstruction)
	return sb.String()
}

// pageOf 读取文档元数据中的页码。
// JSON 往返后数值是 float64，直插时是 int；缺失按第 1 页处理。
func pageOf(doc Document) int {
	switch v := doc.Metadata["page"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 1
	}
}
