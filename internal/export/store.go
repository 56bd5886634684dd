package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// Store 导出数据集的文件存储。命名约定：
// <file_id>_export.csv / <file_id>_export.jsonl，
// 数据集名取不带扩展名的文件名 <file_id>_export。
type Store struct {
	dir string
}

// NewStore 创建导出存储
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir 返回导出目录
func (s *Store) Dir() string {
	return s.dir
}

// Load 读取一个导出数据集，CSV 优先于 JSONL。
// 两种格式都不存在时包装 rag.ErrNotFound。
func (s *Store) Load(ctx context.Context, fileID string) (*rag.ExportedDataset, error) {
	csvPath := filepath.Join(s.dir, fileID+"_export.csv")
	if _, err := os.Stat(csvPath); err == nil {
		return s.loadCSV(fileID, csvPath)
	}

	jsonlPath := filepath.Join(s.dir, fileID+"_export.jsonl")
	if _, err := os.Stat(jsonlPath); err == nil {
		return s.loadJSONL(fileID, jsonlPath)
	}

	return nil, fmt.Errorf("exported dataset %s: %w", fileID, rag.ErrNotFound)
}

// loadCSV 按表头顺序读取 CSV 导出
func (s *Store) loadCSV(fileID, path string) (*rag.ExportedDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv export: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv export %s: %w", fileID, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv export %s has no header", fileID)
	}

	fields := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(fields))
		for i, field := range fields {
			if i < len(record) {
				row[field] = record[i]
			}
		}
		rows = append(rows, row)
	}

	return &rag.ExportedDataset{
		ID:     fileID,
		Name:   fileID + "_export",
		Format: "csv",
		Fields: fields,
		Rows:   rows,
	}, nil
}

// loadJSONL 逐行读取 JSONL 导出。字段顺序取首次出现顺序，
// 用 token 扫描恢复（map 解码会丢序）。
func (s *Store) loadJSONL(fileID, path string) (*rag.ExportedDataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open jsonl export: %w", err)
	}
	defer f.Close()

	var fields []string
	seen := make(map[string]struct{})
	var rows []map[string]string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		row, keys, err := decodeJSONLine(line)
		if err != nil {
			applog.Warn("[Export] Skipping malformed jsonl line", "file_id", fileID, "line", lineNo, "error", err)
			continue
		}
		for _, key := range keys {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				fields = append(fields, key)
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl export %s: %w", fileID, err)
	}

	return &rag.ExportedDataset{
		ID:     fileID,
		Name:   fileID + "_export",
		Format: "jsonl",
		Fields: fields,
		Rows:   rows,
	}, nil
}

// decodeJSONLine 解析单行 JSON 对象，返回键值与键的出现顺序。
// 值统一转字符串，嵌套值保留其 JSON 文本。
func decodeJSONLine(line string) (map[string]string, []string, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil, fmt.Errorf("line is not a json object")
	}

	row := make(map[string]string)
	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected key token %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}

		keys = append(keys, key)
		row[key] = rawToString(value)
	}
	return row, keys, nil
}

// rawToString 把 JSON 值转为展示字符串
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// List 列出导出目录下的全部数据集概要，按 id 排序
func (s *Store) List(ctx context.Context) ([]rag.DatasetInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read exports dir: %w", err)
	}

	var infos []rag.DatasetInfo
	seen := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var id, format string
		switch {
		case strings.HasSuffix(name, "_export.csv"):
			id, format = strings.TrimSuffix(name, "_export.csv"), "csv"
		case strings.HasSuffix(name, "_export.jsonl"):
			id, format = strings.TrimSuffix(name, "_export.jsonl"), "jsonl"
		default:
			continue
		}
		// CSV 与 JSONL 并存时只报一次，与 Load 的 CSV 优先一致
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		info := rag.DatasetInfo{
			ID:       id,
			Name:     id + "_export",
			Format:   format,
			Filename: name,
		}
		if ds, err := s.Load(ctx, id); err == nil {
			info.Format = ds.Format
			info.RowCount = len(ds.Rows)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}
