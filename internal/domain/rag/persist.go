package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// Snapshot 持久化文件布局。save/load 必须精确往返。
type Snapshot struct {
	Documents       []Document           `json:"documents"`
	Embeddings      map[string][]float64 `json:"embeddings"`
	IndexedDatasets []string             `json:"indexed_datasets"`
	Stats           IndexStats           `json:"stats"`
	SavedAt         string               `json:"saved_at,omitempty"`
}

// Persister 文档存储的磁盘镜像。仅用于进程重启恢复，
// 运行期间内存状态才是权威。
type Persister struct {
	path string
}

// NewPersister 创建持久化器
func NewPersister(path string) *Persister {
	return &Persister{path: path}
}

// Path 返回索引文件路径
func (p *Persister) Path() string {
	return p.path
}

// Save 全量覆盖写入快照。失败只返回错误，由调用方记日志，
// 不影响内存状态。
func (p *Persister) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	snap.SavedAt = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	return nil
}

// Load 启动时读取快照。文件不存在返回 (nil, nil)；
// 损坏时记日志并按空索引处理，绝不让启动失败。
func (p *Persister) Load() (*Snapshot, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		applog.Warn("[RAG/Persist] Index file corrupt, starting empty", "path", p.path, "error", err)
		return nil, nil
	}
	if snap.Embeddings == nil {
		snap.Embeddings = make(map[string][]float64)
	}
	return &snap, nil
}
