package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// Service RAG 核心服务：持有文档存储、持久化器、Embedder 和协作方，
// 进程启动时构造一次并注入各 handler（不使用包级全局状态，
// 测试可以按需构造独立实例）。
//
// 写操作（索引/删除）由 mu 串行化，每个批次结束后整体落盘一次；
// 检索只读，走存储自身的读锁。
type Service struct {
	mu        sync.Mutex // 串行化全部变更操作
	store     *DocumentStore
	persister *Persister
	embedder  Embedder
	parsed    ParsedProvider
	exports   ExportProvider
	config    *Config

	enricher MetadataEnricher // 可选
	cache    SearchCacheStore // 可选
}

// NewService 创建 RAG 服务
func NewService(cfg *Config, parsed ParsedProvider, exports ExportProvider) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Service{
		store:     NewDocumentStore(),
		persister: NewPersister(cfg.IndexFile),
		embedder:  NewHashEmbedder(cfg.EmbeddingDims),
		parsed:    parsed,
		exports:   exports,
		config:    cfg,
	}
}

// SetEmbedder 替换 Embedder（接入真实向量模型）。
// 更换方案后已存向量失效，调用方需重建索引。
func (s *Service) SetEmbedder(e Embedder) {
	s.embedder = e
}

// SetEnricher 设置可选的 NLP 元数据富化器
func (s *Service) SetEnricher(e MetadataEnricher) {
	s.enricher = e
}

// SetCache 设置检索结果缓存（索引变更后整体失效）
func (s *Service) SetCache(c SearchCacheStore) {
	s.cache = c
}

// Store 返回底层文档存储（只读用途）
func (s *Service) Store() *DocumentStore {
	return s.store
}

// Load 启动时从磁盘恢复索引。缺失/损坏按空索引处理，不致命。
func (s *Service) Load() {
	snap, err := s.persister.Load()
	if err != nil {
		applog.Warn("[RAG] Could not load index, starting empty", "error", err)
		return
	}
	if snap == nil {
		return
	}

	s.store.Restore(snap)
	applog.Info("[RAG] Index loaded",
		"documents", len(snap.Documents),
		"datasets", len(snap.IndexedDatasets),
		"path", s.persister.Path(),
	)
}

// ── 索引 ──────────────────────────────────────────────────────

// Index 索引一个已解析源的全部段落。
// 源不存在时返回 ErrNotFound；重复索引幂等（已有 id 跳过）。
func (s *Service) Index(ctx context.Context, fileID, datasetName string) (*IndexSummary, error) {
	src, err := s.parsed.Load(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if datasetName == "" {
		datasetName = src.Filename
		if datasetName == "" {
			datasetName = fmt.Sprintf("Document %s", fileID)
		}
	}

	docs := paragraphDocuments(fileID, datasetName, src)

	s.mu.Lock()
	defer s.mu.Unlock()

	indexed := s.insertBatch(docs)
	s.flush(ctx)

	applog.Info("[RAG] Source indexed",
		"file_id", fileID,
		"dataset_name", datasetName,
		"indexed", indexed,
		"total_documents", s.store.Stats().TotalDocuments,
	)

	return &IndexSummary{
		FileID:         fileID,
		DatasetName:    datasetName,
		IndexedCount:   indexed,
		TotalDocuments: s.store.Stats().TotalDocuments,
	}, nil
}

// BulkIndex 把全部已解析源作为一个命名集合批量索引。
// 没有任何已解析源时返回 ErrNotFound。单源失败记入 Failures，
// 不中断批次；落盘只在批次结束后做一次。
func (s *Service) BulkIndex(ctx context.Context, collectionName string, maxSources int) (*BulkIndexSummary, error) {
	if collectionName == "" {
		collectionName = "ebook_dataset"
	}

	fileIDs, err := s.parsed.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("no parsed documents available: %w", ErrNotFound)
	}

	if maxSources > 0 && len(fileIDs) > maxSources {
		fileIDs = fileIDs[:maxSources]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	totalIndexed := 0
	var failures []BulkFailure

	for _, fileID := range fileIDs {
		src, err := s.parsed.Load(ctx, fileID)
		if err != nil {
			failures = append(failures, BulkFailure{FileID: fileID, Error: err.Error()})
			applog.Warn("[RAG] Bulk source failed", "file_id", fileID, "error", err)
			continue
		}

		docs := paragraphDocuments(fileID, collectionName, src)
		indexed := s.insertBatch(docs)
		totalIndexed += indexed
		applog.Debug("[RAG] Bulk source indexed", "file_id", fileID, "indexed", indexed)
	}

	s.flush(ctx)

	applog.Info("[RAG] Bulk index finished",
		"collection", collectionName,
		"files", len(fileIDs),
		"indexed", totalIndexed,
		"failures", len(failures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return &BulkIndexSummary{
		CollectionName:   collectionName,
		FilesProcessed:   len(fileIDs),
		DocumentsIndexed: totalIndexed,
		Failures:         failures,
		TotalDocuments:   s.store.Stats().TotalDocuments,
	}, nil
}

// IndexExportedDataset 索引一个导出数据集（CSV/JSONL 的行）。
func (s *Service) IndexExportedDataset(ctx context.Context, fileID, datasetName string) (*IndexSummary, error) {
	ds, err := s.exports.Load(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if datasetName != "" {
		ds.Name = datasetName
	}

	docs := datasetDocuments(ds)

	s.mu.Lock()
	defer s.mu.Unlock()

	indexed := s.insertBatch(docs)
	s.flush(ctx)

	applog.Info("[RAG] Exported dataset indexed",
		"file_id", fileID,
		"dataset_name", ds.Name,
		"format", ds.Format,
		"rows", len(ds.Rows),
		"indexed", indexed,
	)

	return &IndexSummary{
		FileID:         fileID,
		DatasetName:    ds.Name,
		IndexedCount:   indexed,
		TotalDocuments: s.store.Stats().TotalDocuments,
	}, nil
}

// insertBatch 逐文档去重后嵌入并插入，返回新插入数。
// 调用方必须持有 s.mu。
func (s *Service) insertBatch(docs []Document) int {
	indexed := 0
	for _, doc := range docs {
		if s.store.Contains(doc.ID) {
			continue
		}
		if s.enricher != nil {
			for key, value := range s.enricher.Enrich(doc.FullText) {
				doc.Metadata[key] = value
			}
		}
		vector := s.embedder.Embed(doc.FullText)
		if s.store.Insert(doc, vector) {
			indexed++
		}
	}
	return indexed
}

// flush 落盘 + 清缓存。持久化失败仅记日志，内存状态仍是权威。
// 调用方必须持有 s.mu。
func (s *Service) flush(ctx context.Context) {
	if err := s.persister.Save(s.store.Snapshot()); err != nil {
		applog.Warn("[RAG] Could not save index", "error", err)
	}
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}

// ── 检索 ──────────────────────────────────────────────────────

// Search 按相似度排名检索。空索引返回空结果而非错误。
func (s *Service) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = s.config.DefaultTopK
	}
	threshold := s.config.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, req); ok {
			return cached, nil
		}
	}

	queryVector := s.embedder.Embed(req.Query)
	candidates := s.store.Documents(req.DatasetIDs)

	// 空结果也要序列化成 []，不能是 null
	matches := []SearchMatch{}
	for _, doc := range candidates {
		vec, ok := s.store.VectorFor(doc.ID)
		if !ok {
			// 无向量的文档跳过，不按零分处理
			continue
		}
		score := Cosine(queryVector, vec)
		if score >= threshold {
			matches = append(matches, SearchMatch{
				Document:       doc,
				Similarity:     score,
				RelevanceScore: score,
			})
		}
	}

	// 相似度降序；同分保持插入顺序
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	result := &SearchResult{
		Results:      matches,
		TotalResults: len(matches),
		Query:        req.Query,
	}

	if s.cache != nil {
		s.cache.Set(ctx, req, result)
	}
	return result, nil
}

// ── 统计与管理 ────────────────────────────────────────────────

// Stats 返回索引统计
func (s *Service) Stats() *StatsResult {
	stats := s.store.Stats()
	ids := s.store.DatasetIDs()
	return &StatsResult{
		TotalDocuments:    stats.TotalDocuments,
		IndexedDatasets:   stats.IndexedDatasets,
		LastUpdated:       stats.LastUpdated,
		IndexedDatasetIDs: ids,
		TotalEmbeddings:   stats.TotalDocuments,
	}
}

// RemoveDataset 删除一个数据集的全部文档。未索引时返回 ErrNotFound。
func (s *Service) RemoveDataset(ctx context.Context, datasetID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.RemoveByDataset(datasetID)
	if err != nil {
		return 0, err
	}
	s.flush(ctx)

	applog.Info("[RAG] Dataset removed", "dataset_id", datasetID, "removed", removed)
	return removed, nil
}

// AvailableDatasets 列出导出目录下可供索引的数据集
func (s *Service) AvailableDatasets(ctx context.Context) ([]DatasetInfo, error) {
	return s.exports.List(ctx)
}

// IndexedDatasets 按 datasetId 分组汇总索引内容，附文本预览。
func (s *Service) IndexedDatasets() []IndexedDatasetSummary {
	previewLen := s.config.PreviewLength
	if previewLen <= 0 {
		previewLen = 100
	}

	var order []string
	groups := make(map[string]*IndexedDatasetSummary)

	for _, doc := range s.store.Documents(nil) {
		group, ok := groups[doc.DatasetID]
		if !ok {
			group = &IndexedDatasetSummary{
				DatasetID:   doc.DatasetID,
				DatasetName: doc.DatasetName,
				Category:    doc.Category,
			}
			groups[doc.DatasetID] = group
			order = append(order, doc.DatasetID)
		}
		group.DocumentCount++
		group.Documents = append(group.Documents, DocumentPreview{
			ID:          doc.ID,
			RowIndex:    doc.RowIndex,
			TextPreview: previewText(doc.FullText, previewLen),
		})
	}

	summaries := make([]IndexedDatasetSummary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *groups[id])
	}
	return summaries
}

// previewText 截断预览，超长时追加省略号
func previewText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
