package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Cache 解析结果的磁盘缓存，一个源文件一个
// <file_id>_parsed.json。解析是重操作，下游（标注、导出、索引）
// 统一读缓存而不重复解析。
type Cache struct {
	dir string
}

// NewCache 创建解析缓存
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

// Path 返回指定 fileID 的缓存文件路径
func (c *Cache) Path(fileID string) string {
	return filepath.Join(c.dir, fileID+"_parsed.json")
}

// Exists 判断缓存是否存在
func (c *Cache) Exists(fileID string) bool {
	_, err := os.Stat(c.Path(fileID))
	return err == nil
}

// Save 写入解析结果
func (c *Cache) Save(doc *ParsedDocument) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal parsed document: %w", err)
	}
	if err := os.WriteFile(c.Path(doc.FileID), data, 0o644); err != nil {
		return fmt.Errorf("write parse cache: %w", err)
	}
	return nil
}

// Load 读取解析结果，缓存不存在时返回 os.ErrNotExist
func (c *Cache) Load(id string) (*ParsedDocument, error) {
	data, err := os.ReadFile(c.Path(id))
	if err != nil {
		return nil, err
	}

	var doc ParsedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode parse cache %s: %w", id, err)
	}
	return &doc, nil
}

// List 列出所有已缓存的 fileID，按字典序
func (c *Cache) List() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, "_parsed.json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, "_parsed.json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete 删除指定缓存，不存在不报错
func (c *Cache) Delete(id string) error {
	err := os.Remove(c.Path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete parse cache: %w", err)
	}
	return nil
}
