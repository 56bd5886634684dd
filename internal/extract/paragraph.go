package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// minParagraphLen 过滤噪声碎片的最小字符数
const minParagraphLen = 10

var (
	reWhitespace  = regexp.MustCompile(`\s+`)
	reLowerUpper  = regexp.MustCompile(`([a-z])([A-Z])`)
	rePunctuation = regexp.MustCompile(`(\w)([.!?])(\w)`)
	reBlankLine   = regexp.MustCompile(`\n\s*\n`)
)

// CleanText 规整提取文本：折叠空白、修补常见 OCR 粘连
//（小写紧跟大写、标点后缺空格）。
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = reWhitespace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	text = reLowerUpper.ReplaceAllString(text, "$1 $2")
	text = rePunctuation.ReplaceAllString(text, "$1$2 $3")

	return text
}

// SplitPageParagraphs 把一页文本按空行切分为段落并清洗，
// 过滤掉过短的碎片。段落 id 形如 p_<页>_<序号>。
func SplitPageParagraphs(text string, page int) []Paragraph {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var result []Paragraph
	for i, raw := range reBlankLine.Split(text, -1) {
		cleaned := CleanText(raw)
		if utf8.RuneCountInString(cleaned) <= minParagraphLen {
			continue
		}
		result = append(result, Paragraph{
			ID:             fmt.Sprintf("p_%d_%d", page, i),
			Page:           page,
			ParagraphIndex: i,
			Text:           cleaned,
			WordCount:      len(strings.Fields(cleaned)),
			CharCount:      utf8.RuneCountInString(cleaned),
			Annotations:    map[string]any{},
		})
	}
	return result
}

// BuildParagraphs 把提取器输出的逐页文本转为段落列表
func BuildParagraphs(ex *Extraction) []Paragraph {
	var paragraphs []Paragraph
	for _, page := range ex.Pages {
		paragraphs = append(paragraphs, SplitPageParagraphs(page.Text, page.Page)...)
	}
	return paragraphs
}
