package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BlacMeW/DataForge-Reader/internal/extract"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// baseFields 每行固定在前的字段
var baseFields = []string{"id", "page", "paragraph_index", "text", "word_count", "char_count"}

// Writer 把已解析文档落成导出数据集（CSV / JSONL），
// 文件名与 Store 的读取约定一致。
type Writer struct {
	dir string
}

// NewWriter 创建导出写入器
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write 导出一个已解析文档，返回生成的文件路径。
// format 取 "csv" 或 "jsonl"；includeAnnotations 控制是否附带标注列。
func (w *Writer) Write(doc *extract.ParsedDocument, format string, includeAnnotations bool) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create exports dir: %w", err)
	}

	rows, fields := buildRows(doc, includeAnnotations)

	var path string
	var err error
	switch format {
	case "csv":
		path = filepath.Join(w.dir, doc.FileID+"_export.csv")
		err = writeCSV(path, fields, rows)
	case "jsonl":
		path = filepath.Join(w.dir, doc.FileID+"_export.jsonl")
		err = writeJSONL(path, fields, rows)
	default:
		return "", fmt.Errorf("format must be 'csv' or 'jsonl', got %q", format)
	}
	if err != nil {
		return "", err
	}

	applog.Info("[Export] Dataset written",
		"file_id", doc.FileID,
		"format", format,
		"rows", len(rows),
		"path", path,
	)
	return path, nil
}

// buildRows 把段落铺平成行，标注键作为附加列（按字典序补在固定列后）
func buildRows(doc *extract.ParsedDocument, includeAnnotations bool) ([]map[string]string, []string) {
	annotationKeys := make(map[string]struct{})
	rows := make([]map[string]string, 0, len(doc.Paragraphs))

	for _, para := range doc.Paragraphs {
		row := map[string]string{
			"id":              para.ID,
			"page":            fmt.Sprintf("%d", para.Page),
			"paragraph_index": fmt.Sprintf("%d", para.ParagraphIndex),
			"text":            para.Text,
			"word_count":      fmt.Sprintf("%d", para.WordCount),
			"char_count":      fmt.Sprintf("%d", para.CharCount),
		}
		if includeAnnotations {
			for key, value := range para.Annotations {
				annotationKeys[key] = struct{}{}
				row[key] = fmt.Sprintf("%v", value)
			}
		}
		rows = append(rows, row)
	}

	fields := append([]string{}, baseFields...)
	extra := make([]string, 0, len(annotationKeys))
	for key := range annotationKeys {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	fields = append(fields, extra...)

	return rows, fields
}

func writeCSV(path string, fields []string, rows []map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv export: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(fields); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(fields))
		for i, field := range fields {
			record[i] = row[field]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSONL(path string, fields []string, rows []map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create jsonl export: %w", err)
	}
	defer f.Close()

	for _, row := range rows {
		// 手工按字段顺序编码，保持行内键序稳定
		line := []byte("{")
		for i, field := range fields {
			if i > 0 {
				line = append(line, ',')
			}
			key, _ := json.Marshal(field)
			value, _ := json.Marshal(row[field])
			line = append(line, key...)
			line = append(line, ':')
			line = append(line, value...)
		}
		line = append(line, '}', '\n')
		if _, err := f.Write(line); err != nil {
			return fmt.Errorf("write jsonl row: %w", err)
		}
	}
	return nil
}
