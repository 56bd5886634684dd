package rag

import (
	"fmt"
	"strings"
)

// fieldValueMaxLen 表格行字段元数据的截断长度
const fieldValueMaxLen = 100

// paragraphDocuments 将解析段落转为 Document。
// id = "<fileID>_<段落id>"，fullText/prompt/completion 都取段落文本。
func paragraphDocuments(fileID, datasetName string, src *ParsedSource) []Document {
	docs := make([]Document, 0, len(src.Paragraphs))
	for idx, p := range src.Paragraphs {
		annotations := p.Annotations
		if annotations == nil {
			annotations = map[string]any{}
		}

		docs = append(docs, Document{
			ID:          fmt.Sprintf("%s_%s", fileID, p.ID),
			DatasetID:   fileID,
			DatasetName: datasetName,
			FullText:    p.Text,
			Prompt:      p.Text,
			Completion:  p.Text,
			Intent:      "content",
			Category:    CategoryParagraph,
			RowIndex:    idx,
			Metadata: map[string]any{
				"page":              p.Page,
				"paragraph_index":   p.ParagraphIndex,
				"word_count":        p.WordCount,
				"char_count":        p.CharCount,
				"annotations":       annotations,
				"extraction_method": src.ExtractionMethod,
			},
		})
	}
	return docs
}

// datasetDocuments 将导出数据集的行转为 Document。
// fullText 按字段声明顺序拼接 "<字段>: <值>"，用 " | " 分隔；
// 全部字段为空时退化为 "Row <idx>"。
func datasetDocuments(ds *ExportedDataset) []Document {
	docs := make([]Document, 0, len(ds.Rows))
	for idx, row := range ds.Rows {
		var parts []string
		metadata := map[string]any{
			"row_index":    idx,
			"dataset_id":   ds.ID,
			"dataset_name": ds.Name,
			"format":       ds.Format,
		}

		for _, field := range ds.Fields {
			value := row[field]
			if strings.TrimSpace(value) == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", field, value))
			metadata["field_"+field] = truncateRunes(value, fieldValueMaxLen)
		}

		fullText := strings.Join(parts, " | ")
		if fullText == "" {
			fullText = fmt.Sprintf("Row %d", idx)
		}

		docs = append(docs, Document{
			ID:          fmt.Sprintf("%s_row_%d", ds.ID, idx),
			DatasetID:   ds.ID,
			DatasetName: ds.Name,
			FullText:    fullText,
			Prompt:      fullText,
			Completion:  fullText,
			Intent:      "data",
			Category:    CategoryDatasetRow,
			RowIndex:    idx,
			Metadata:    metadata,
		})
	}
	return docs
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
