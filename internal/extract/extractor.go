package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	applog "github.com/BlacMeW/DataForge-Reader/internal/platform/log"
)

// ── Extractor 接口 ────────────────────────────────────────────

// Extractor 文档文本提取器接口
type Extractor interface {
	// Extract 提取逐页文本
	Extract(reader io.Reader, filename string) (*Extraction, error)
	// SupportedTypes 支持的文件扩展名
	SupportedTypes() []string
}

// ── PDF Extractor ────────────────────────────────────────────

// PDFExtractor 基于文本层提取 PDF，每个物理页一条 PageText。
// 扫描件（无文本层）的 OCR 回退不在此实现内。
type PDFExtractor struct{}

func (e *PDFExtractor) SupportedTypes() []string {
	return []string{".pdf"}
}

func (e *PDFExtractor) Extract(reader io.Reader, filename string) (*Extraction, error) {
	// pdf 库需要 io.ReaderAt + size，先读到内存
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf data: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := r.NumPage()
	var pages []PageText

	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			applog.Warn("[Extract/PDF] Failed to extract page text", "page", i, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, PageText{Page: i, Text: text})
		}
	}

	return &Extraction{
		Pages:      pages,
		Method:     "pdftext",
		TotalPages: total,
	}, nil
}

// ── EPUB Extractor ───────────────────────────────────────────

// EPUBExtractor 把 EPUB（XHTML 的 zip 包）按内容文档展开，
// 每个内容文档视作一"页"。
type EPUBExtractor struct{}

var (
	reHTMLScript = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	reHTMLBlock  = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|br)>|<br\s*/?>`)
	reHTMLTag    = regexp.MustCompile(`<[^>]+>`)
)

func (e *EPUBExtractor) SupportedTypes() []string {
	return []string{".epub"}
}

func (e *EPUBExtractor) Extract(reader io.Reader, filename string) (*Extraction, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read epub data: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}

	// 按归档内路径排序，保证页码稳定
	var contentFiles []*zip.File
	for _, f := range zr.File {
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".xhtml", ".html", ".htm":
			contentFiles = append(contentFiles, f)
		}
	}
	sort.Slice(contentFiles, func(i, j int) bool {
		return contentFiles[i].Name < contentFiles[j].Name
	})

	var pages []PageText
	pageNum := 1
	for _, f := range contentFiles {
		rc, err := f.Open()
		if err != nil {
			applog.Warn("[Extract/EPUB] Failed to open content document", "name", f.Name, "error", err)
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			applog.Warn("[Extract/EPUB] Failed to read content document", "name", f.Name, "error", err)
			continue
		}

		text := stripHTML(string(raw))
		if strings.TrimSpace(text) != "" {
			pages = append(pages, PageText{Page: pageNum, Text: text})
		}
		pageNum++
	}

	return &Extraction{
		Pages:      pages,
		Method:     "epub",
		TotalPages: len(contentFiles),
	}, nil
}

// stripHTML 去除标签，块级元素闭合处换段
func stripHTML(html string) string {
	text := reHTMLScript.ReplaceAllString(html, "")
	text = reHTMLBlock.ReplaceAllString(text, "\n\n")
	text = reHTMLTag.ReplaceAllString(text, " ")
	text = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&nbsp;", " ",
		"&#39;", "'",
	).Replace(text)
	return text
}

// ── DOCX Extractor ───────────────────────────────────────────

// DOCXExtractor 提取 Word 文档文本（整篇视作一页）
type DOCXExtractor struct{}

func (e *DOCXExtractor) SupportedTypes() []string {
	return []string{".docx"}
}

func (e *DOCXExtractor) Extract(reader io.Reader, filename string) (*Extraction, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read docx data: %w", err)
	}

	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	// docx 返回 XML，段落闭合处换段后去标签
	content := r.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "\n\n")
	text := reHTMLTag.ReplaceAllString(content, "")

	return &Extraction{
		Pages:      []PageText{{Page: 1, Text: text}},
		Method:     "docx",
		TotalPages: 1,
	}, nil
}

// ── Plain Text Extractor ─────────────────────────────────────

// TextExtractor 纯文本/Markdown 提取（整篇视作一页）
type TextExtractor struct{}

func (e *TextExtractor) SupportedTypes() []string {
	return []string{".txt", ".text", ".md", ".markdown"}
}

func (e *TextExtractor) Extract(reader io.Reader, filename string) (*Extraction, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}

	return &Extraction{
		Pages:      []PageText{{Page: 1, Text: string(data)}},
		Method:     "text",
		TotalPages: 1,
	}, nil
}

// ── Registry ─────────────────────────────────────────────────

// Registry 提取器注册表，按扩展名分发
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor // key = ".ext"
}

// NewRegistry 创建注册表并注册内置提取器
func NewRegistry() *Registry {
	r := &Registry{
		extractors: make(map[string]Extractor),
	}

	r.Register(&PDFExtractor{})
	r.Register(&EPUBExtractor{})
	r.Register(&DOCXExtractor{})
	r.Register(&TextExtractor{})

	return r
}

// Register 注册提取器
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range e.SupportedTypes() {
		r.extractors[strings.ToLower(ext)] = e
	}
}

// Get 根据文件名选择提取器
func (r *Registry) Get(filename string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil, fmt.Errorf("no file extension in filename: %s", filename)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s (supported: %s)", ext, r.SupportedTypes())
	}
	return e, nil
}

// SupportedTypes 返回所有支持的扩展名
func (r *Registry) SupportedTypes() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		types = append(types, ext)
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}
