package rag

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DocumentStore 进程内权威文档集合：文档按插入顺序保存，
// 向量按 id 关联，datasetId 集合与统计随每次变更重算。
type DocumentStore struct {
	mu         sync.RWMutex
	documents  []Document
	embeddings map[string][]float64
	datasets   map[string]struct{}
	stats      IndexStats
}

// NewDocumentStore 创建空的文档存储
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		embeddings: make(map[string][]float64),
		datasets:   make(map[string]struct{}),
	}
}

// Contains 判断 id 是否已索引
func (s *DocumentStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.embeddings[id]
	return ok
}

// Insert 插入文档及其向量。id 已存在时是幂等 no-op，返回 false。
// 副作用：datasetId 进入已索引集合，统计重算。
func (s *DocumentStore) Insert(doc Document, vector []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.embeddings[doc.ID]; ok {
		return false
	}

	s.documents = append(s.documents, doc)
	s.embeddings[doc.ID] = vector
	s.datasets[doc.DatasetID] = struct{}{}
	s.touch()
	return true
}

// RemoveByDataset 删除指定 datasetId 的全部文档及向量。
// datasetId 不在已索引集合中时返回 ErrNotFound。
func (s *DocumentStore) RemoveByDataset(datasetID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.datasets[datasetID]; !ok {
		return 0, fmt.Errorf("dataset %s not in index: %w", datasetID, ErrNotFound)
	}

	kept := s.documents[:0]
	removed := 0
	for _, doc := range s.documents {
		if doc.DatasetID == datasetID {
			delete(s.embeddings, doc.ID)
			removed++
			continue
		}
		kept = append(kept, doc)
	}
	s.documents = kept
	delete(s.datasets, datasetID)
	s.touch()
	return removed, nil
}

// Documents 按插入顺序枚举文档；filter 非空时只返回命中的 datasetId。
func (s *DocumentStore) Documents(datasetFilter []string) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(datasetFilter) == 0 {
		out := make([]Document, len(s.documents))
		copy(out, s.documents)
		return out
	}

	allow := make(map[string]struct{}, len(datasetFilter))
	for _, id := range datasetFilter {
		allow[id] = struct{}{}
	}

	var out []Document
	for _, doc := range s.documents {
		if _, ok := allow[doc.DatasetID]; ok {
			out = append(out, doc)
		}
	}
	return out
}

// VectorFor 返回 id 对应的向量，不存在时 ok 为 false。
func (s *DocumentStore) VectorFor(id string) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.embeddings[id]
	return vec, ok
}

// Stats 返回缓存的统计快照
func (s *DocumentStore) Stats() IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// DatasetIDs 返回已索引 datasetId（排序后）
func (s *DocumentStore) DatasetIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.datasets))
	for id := range s.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasDataset 判断 datasetId 是否在已索引集合中
func (s *DocumentStore) HasDataset(datasetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.datasets[datasetID]
	return ok
}

// Snapshot 导出持久化快照。集合在持久化边界转为有序列表。
func (s *DocumentStore) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]Document, len(s.documents))
	copy(docs, s.documents)

	embeddings := make(map[string][]float64, len(s.embeddings))
	for id, vec := range s.embeddings {
		cp := make([]float64, len(vec))
		copy(cp, vec)
		embeddings[id] = cp
	}

	ids := make([]string, 0, len(s.datasets))
	for id := range s.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Snapshot{
		Documents:       docs,
		Embeddings:      embeddings,
		IndexedDatasets: ids,
		Stats:           s.stats,
	}
}

// Restore 从快照重建存储内容（启动加载用）
func (s *DocumentStore) Restore(snap *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = append([]Document(nil), snap.Documents...)
	s.embeddings = make(map[string][]float64, len(snap.Embeddings))
	for id, vec := range snap.Embeddings {
		s.embeddings[id] = append([]float64(nil), vec...)
	}
	s.datasets = make(map[string]struct{}, len(snap.IndexedDatasets))
	for _, id := range snap.IndexedDatasets {
		s.datasets[id] = struct{}{}
	}
	s.stats = snap.Stats
}

// touch 重算统计。调用方必须持有写锁。
func (s *DocumentStore) touch() {
	s.stats = IndexStats{
		TotalDocuments:  len(s.documents),
		IndexedDatasets: len(s.datasets),
		LastUpdated:     time.Now().Format(time.RFC3339),
	}
}
