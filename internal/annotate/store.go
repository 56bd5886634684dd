// Package annotate 段落级标注的文件存储。
// 一个源文件一个 <file_id>_annotations.json，键是段落 id。
package annotate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
)

// Store 标注存储。写操作串行化，读写都走整文件 JSON。
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore 创建标注存储
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(fileID string) string {
	return filepath.Join(s.dir, fileID+"_annotations.json")
}

// Save 写入一个段落的标注，同段落整体覆盖。
func (s *Store) Save(fileID, paragraphID string, annotations map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(fileID)
	if err != nil {
		return err
	}
	all[paragraphID] = annotations

	return s.write(fileID, all)
}

// Load 读取一个源文件的全部标注，无标注返回空 map。
func (s *Store) Load(fileID string) (map[string]map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(fileID)
}

// Delete 删除指定段落的标注，段落无标注时返回 ErrNotFound。
func (s *Store) Delete(fileID, paragraphID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(fileID)
	if err != nil {
		return err
	}
	if _, ok := all[paragraphID]; !ok {
		return fmt.Errorf("annotation for paragraph %s: %w", paragraphID, rag.ErrNotFound)
	}
	delete(all, paragraphID)

	return s.write(fileID, all)
}

func (s *Store) load(fileID string) (map[string]map[string]any, error) {
	data, err := os.ReadFile(s.path(fileID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]map[string]any{}, nil
		}
		return nil, fmt.Errorf("read annotations: %w", err)
	}

	var all map[string]map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode annotations %s: %w", fileID, err)
	}
	if all == nil {
		all = map[string]map[string]any{}
	}
	return all, nil
}

func (s *Store) write(fileID string, all map[string]map[string]any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create annotations dir: %w", err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}
	if err := os.WriteFile(s.path(fileID), data, 0o644); err != nil {
		return fmt.Errorf("write annotations: %w", err)
	}
	return nil
}
