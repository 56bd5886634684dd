package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// fakeParsed 内存版解析源提供者
type fakeParsed struct {
	sources map[string]*ParsedSource
	order   []string
	broken  map[string]struct{} // 这些 fileID 的 Load 会失败
}

func (f *fakeParsed) Load(ctx context.Context, fileID string) (*ParsedSource, error) {
	if _, bad := f.broken[fileID]; bad {
		return nil, fmt.Errorf("cache file unreadable")
	}
	src, ok := f.sources[fileID]
	if !ok {
		return nil, fmt.Errorf("document %s not parsed yet: %w", fileID, ErrNotFound)
	}
	return src, nil
}

func (f *fakeParsed) List(ctx context.Context) ([]string, error) {
	return f.order, nil
}

// fakeExports 内存版导出数据集提供者
type fakeExports struct {
	datasets map[string]*ExportedDataset
}

func (f *fakeExports) Load(ctx context.Context, fileID string) (*ExportedDataset, error) {
	ds, ok := f.datasets[fileID]
	if !ok {
		return nil, fmt.Errorf("exported dataset %s: %w", fileID, ErrNotFound)
	}
	cp := *ds
	return &cp, nil
}

func (f *fakeExports) List(ctx context.Context) ([]DatasetInfo, error) {
	var infos []DatasetInfo
	for id, ds := range f.datasets {
		infos = append(infos, DatasetInfo{ID: id, Name: ds.Name, Format: ds.Format, RowCount: len(ds.Rows)})
	}
	return infos, nil
}

func paragraphSource(fileID, filename string, texts ...string) *ParsedSource {
	src := &ParsedSource{FileID: fileID, Filename: filename, ExtractionMethod: "pdftext"}
	for i, text := range texts {
		src.Paragraphs = append(src.Paragraphs, ParagraphRecord{
			ID:             fmt.Sprintf("p_1_%d", i),
			Page:           1,
			ParagraphIndex: i,
			Text:           text,
			WordCount:      len(strings.Fields(text)),
			CharCount:      len(text),
		})
	}
	return src
}

func newTestService(t *testing.T, parsed ParsedProvider, exports ExportProvider) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.IndexFile = filepath.Join(t.TempDir(), "rag_index.json")
	return NewService(cfg, parsed, exports)
}

func floatPtr(v float64) *float64 { return &v }

func TestServiceIndexAndSearch(t *testing.T) {
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "fox.pdf",
				"The quick brown fox jumps over the lazy dog.",
			),
		},
		order: []string{"f1"},
	}
	svc := newTestService(t, parsed, &fakeExports{})

	summary, err := svc.Index(context.Background(), "f1", "")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if summary.IndexedCount != 1 {
		t.Fatalf("expected 1 paragraph indexed, got %d", summary.IndexedCount)
	}
	if summary.DatasetName != "fox.pdf" {
		t.Fatalf("dataset name should default to filename, got %q", summary.DatasetName)
	}

	result, err := svc.Search(context.Background(), &SearchRequest{
		Query:     "quick brown fox",
		TopK:      5,
		Threshold: floatPtr(0.0),
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.TotalResults != 1 {
		t.Fatalf("expected the single document to match at threshold 0, got %d", result.TotalResults)
	}
	match := result.Results[0]
	if match.Document.ID != "f1_p_1_0" {
		t.Fatalf("unexpected document id %q", match.Document.ID)
	}
	if match.Similarity < -1 || match.Similarity > 1 {
		t.Fatalf("similarity %v outside [-1, 1]", match.Similarity)
	}
	if match.RelevanceScore != match.Similarity {
		t.Fatal("relevance score should mirror similarity")
	}
}

func TestServiceIndexMissingSource(t *testing.T) {
	svc := newTestService(t, &fakeParsed{sources: map[string]*ParsedSource{}}, &fakeExports{})

	_, err := svc.Index(context.Background(), "missing", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceIndexIdempotent(t *testing.T) {
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "a.pdf", "First paragraph of the document."),
		},
	}
	svc := newTestService(t, parsed, &fakeExports{})

	first, err := svc.Index(context.Background(), "f1", "")
	if err != nil {
		t.Fatalf("first Index: %v", err)
	}
	second, err := svc.Index(context.Background(), "f1", "")
	if err != nil {
		t.Fatalf("second Index: %v", err)
	}

	if first.IndexedCount != 1 || second.IndexedCount != 0 {
		t.Fatalf("re-index should skip existing ids: first=%d second=%d", first.IndexedCount, second.IndexedCount)
	}
	if svc.Stats().TotalDocuments != 1 {
		t.Fatalf("expected 1 document after re-index, got %d", svc.Stats().TotalDocuments)
	}
}

func TestServiceSearchThresholdAndTopK(t *testing.T) {
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "a.pdf",
				"Alpha paragraph about storage engines.",
				"Beta paragraph about network protocols.",
				"Gamma paragraph about compiler design.",
			),
		},
	}
	svc := newTestService(t, parsed, &fakeExports{})
	if _, err := svc.Index(context.Background(), "f1", ""); err != nil {
		t.Fatal(err)
	}

	// 阈值 >1 时不可能有结果
	result, err := svc.Search(context.Background(), &SearchRequest{
		Query:     "storage engines",
		Threshold: floatPtr(1.1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalResults != 0 {
		t.Fatalf("threshold above max similarity must filter everything, got %d", result.TotalResults)
	}

	// topK=2 最多返回 2 条
	result, err = svc.Search(context.Background(), &SearchRequest{
		Query:     "paragraph",
		TopK:      2,
		Threshold: floatPtr(-1.0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalResults != 2 {
		t.Fatalf("expected topK to cap results at 2, got %d", result.TotalResults)
	}
	if result.Results[0].Similarity < result.Results[1].Similarity {
		t.Fatal("results not sorted by similarity descending")
	}
}

func TestServiceSearchEmptyIndex(t *testing.T) {
	svc := newTestService(t, &fakeParsed{}, &fakeExports{})

	result, err := svc.Search(context.Background(), &SearchRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("empty index search should not error, got %v", err)
	}
	if result.TotalResults != 0 || len(result.Results) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}

	// JSON 序列化必须给出空数组而不是 null
	data, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"results":[]`) {
		t.Fatalf("empty search must marshal results as [], got %s", data)
	}
}

func TestServiceBulkIndexPartialFailure(t *testing.T) {
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "a.pdf", "Paragraph from the first file."),
			"f3": paragraphSource("f3", "c.pdf", "Paragraph from the third file."),
		},
		order:  []string{"f1", "f2", "f3"},
		broken: map[string]struct{}{"f2": {}},
	}
	svc := newTestService(t, parsed, &fakeExports{})

	summary, err := svc.BulkIndex(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("BulkIndex: %v", err)
	}

	if summary.CollectionName != "ebook_dataset" {
		t.Fatalf("collection name should default, got %q", summary.CollectionName)
	}
	if summary.FilesProcessed != 3 {
		t.Fatalf("expected 3 files processed, got %d", summary.FilesProcessed)
	}
	if summary.DocumentsIndexed != 2 {
		t.Fatalf("expected 2 documents indexed, got %d", summary.DocumentsIndexed)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].FileID != "f2" {
		t.Fatalf("expected single failure for f2, got %+v", summary.Failures)
	}

	// 每个成功源的 fileID 都要进入已索引集合，删除按源生效
	removed, err := svc.RemoveDataset(context.Background(), "f1")
	if err != nil {
		t.Fatalf("RemoveDataset after bulk: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 document removed for f1, got %d", removed)
	}
}

func TestServiceBulkIndexNoSources(t *testing.T) {
	svc := newTestService(t, &fakeParsed{}, &fakeExports{})

	_, err := svc.BulkIndex(context.Background(), "stuff", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no parsed sources, got %v", err)
	}
}

func TestServiceIndexExportedDataset(t *testing.T) {
	exports := &fakeExports{
		datasets: map[string]*ExportedDataset{
			"d1": {
				ID:     "d1",
				Name:   "d1_export",
				Format: "csv",
				Fields: []string{"title", "body"},
				Rows: []map[string]string{
					{"title": "First", "body": "Row one body text."},
					{"title": "Second", "body": "Row two body text."},
					{"title": "", "body": ""},
				},
			},
		},
	}
	svc := newTestService(t, &fakeParsed{}, exports)

	summary, err := svc.IndexExportedDataset(context.Background(), "d1", "")
	if err != nil {
		t.Fatalf("IndexExportedDataset: %v", err)
	}
	if summary.IndexedCount != 3 {
		t.Fatalf("expected 3 rows indexed, got %d", summary.IndexedCount)
	}

	docs := svc.Store().Documents([]string{"d1"})
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents for dataset d1, got %d", len(docs))
	}
	if docs[0].ID != "d1_row_0" {
		t.Fatalf("row document id wrong: %q", docs[0].ID)
	}
	if docs[0].FullText != "title: First | body: Row one body text." {
		t.Fatalf("row text wrong: %q", docs[0].FullText)
	}
	// 全空行回退为行号占位文本
	if docs[2].FullText != "Row 2" {
		t.Fatalf("empty row fallback wrong: %q", docs[2].FullText)
	}
}

func TestServiceRemoveDatasetPersists(t *testing.T) {
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "a.pdf", "Something worth indexing here."),
		},
	}
	cfg := DefaultConfig()
	cfg.IndexFile = filepath.Join(t.TempDir(), "rag_index.json")

	svc := NewService(cfg, parsed, &fakeExports{})
	if _, err := svc.Index(context.Background(), "f1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RemoveDataset(context.Background(), "f1"); err != nil {
		t.Fatal(err)
	}

	// 重启后删除仍然生效
	svc2 := NewService(cfg, parsed, &fakeExports{})
	svc2.Load()
	if svc2.Stats().TotalDocuments != 0 {
		t.Fatalf("removal not persisted, got %d documents after reload", svc2.Stats().TotalDocuments)
	}

	_, err := svc.RemoveDataset(context.Background(), "f1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("removing absent dataset should be ErrNotFound, got %v", err)
	}
}

func TestServiceLoadRestoresIndex(t *testing.T) {
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "a.pdf", "Persistent paragraph for reload test."),
		},
	}
	cfg := DefaultConfig()
	cfg.IndexFile = filepath.Join(t.TempDir(), "rag_index.json")

	svc := NewService(cfg, parsed, &fakeExports{})
	if _, err := svc.Index(context.Background(), "f1", ""); err != nil {
		t.Fatal(err)
	}

	svc2 := NewService(cfg, parsed, &fakeExports{})
	svc2.Load()

	if svc2.Stats().TotalDocuments != 1 {
		t.Fatalf("expected 1 document after reload, got %d", svc2.Stats().TotalDocuments)
	}
	result, err := svc2.Search(context.Background(), &SearchRequest{
		Query:     "Persistent paragraph for reload test.",
		Threshold: floatPtr(0.0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalResults != 1 {
		t.Fatalf("reloaded index should be searchable, got %d results", result.TotalResults)
	}
}

func TestServiceIndexedDatasets(t *testing.T) {
	longText := strings.Repeat("word ", 50) + "tail"
	parsed := &fakeParsed{
		sources: map[string]*ParsedSource{
			"f1": paragraphSource("f1", "a.pdf", longText),
			"f2": paragraphSource("f2", "b.pdf", "Short paragraph."),
		},
	}
	svc := newTestService(t, parsed, &fakeExports{})
	if _, err := svc.Index(context.Background(), "f1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Index(context.Background(), "f2", ""); err != nil {
		t.Fatal(err)
	}

	summaries := svc.IndexedDatasets()
	if len(summaries) != 2 {
		t.Fatalf("expected 2 dataset groups, got %d", len(summaries))
	}
	// 分组保持首次出现顺序
	if summaries[0].DatasetID != "f1" || summaries[1].DatasetID != "f2" {
		t.Fatalf("group order wrong: %s, %s", summaries[0].DatasetID, summaries[1].DatasetID)
	}
	preview := summaries[0].Documents[0].TextPreview
	if !strings.HasSuffix(preview, "...") {
		t.Fatalf("long text preview should be truncated with ellipsis: %q", preview)
	}
	if len([]rune(preview)) != 103 {
		t.Fatalf("preview should be 100 runes plus ellipsis, got %d", len([]rune(preview)))
	}
	if summaries[1].Documents[0].TextPreview != "Short paragraph." {
		t.Fatal("short text should not be truncated")
	}
}
