package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/BlacMeW/DataForge-Reader/internal/domain/rag"
)

var reIDSanitize = regexp.MustCompile(`[^a-z0-9_]+`)

// CustomStore 自定义模板的文件存储，
// 全部模板存在一个 custom_templates.json 里。
type CustomStore struct {
	mu   sync.Mutex
	path string
}

// NewCustomStore 创建自定义模板存储
func NewCustomStore(dir string) *CustomStore {
	return &CustomStore{path: filepath.Join(dir, "custom_templates.json")}
}

// Create 保存一个自定义模板。id 由名称派生（custom_ 前缀），
// 与已有模板冲突时返回错误。
func (s *CustomStore) Create(name, description string, fields []Field, schema map[string]any) (Template, error) {
	id := "custom_" + reIDSanitize.ReplaceAllString(strings.ToLower(strings.ReplaceAll(name, " ", "_")), "")
	if _, ok := Lookup(id); ok {
		return Template{}, fmt.Errorf("template id %s collides with a predefined template", id)
	}

	t := Template{
		ID:               id,
		Name:             name,
		Description:      description,
		TaskType:         "custom",
		Fields:           fields,
		AnnotationSchema: schema,
		ExportFormat:     "jsonl",
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return Template{}, err
	}
	if _, ok := all[id]; ok {
		return Template{}, fmt.Errorf("custom template %s already exists", id)
	}
	all[id] = t

	if err := s.write(all); err != nil {
		return Template{}, err
	}
	return t, nil
}

// Get 查自定义模板，不存在时返回 ErrNotFound
func (s *CustomStore) Get(id string) (Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return Template{}, err
	}
	t, ok := all[id]
	if !ok {
		return Template{}, fmt.Errorf("custom template %s: %w", id, rag.ErrNotFound)
	}
	return t, nil
}

// List 列出全部自定义模板，按 id 排序
func (s *CustomStore) List() ([]Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	list := make([]Template, 0, len(all))
	for _, t := range all {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Delete 删除自定义模板，不存在时返回 ErrNotFound
func (s *CustomStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := all[id]; !ok {
		return fmt.Errorf("custom template %s: %w", id, rag.ErrNotFound)
	}
	delete(all, id)
	return s.write(all)
}

func (s *CustomStore) load() (map[string]Template, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Template{}, nil
		}
		return nil, fmt.Errorf("read custom templates: %w", err)
	}

	var all map[string]Template
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decode custom templates: %w", err)
	}
	if all == nil {
		all = map[string]Template{}
	}
	return all, nil
}

func (s *CustomStore) write(all map[string]Template) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create templates dir: %w", err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal custom templates: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write custom templates: %w", err)
	}
	return nil
}
