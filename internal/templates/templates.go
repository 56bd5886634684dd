// Package templates 数据集模板：五个内置任务模板 + 文件存储的自定义模板。
package templates

import "sort"

// Field 模板字段声明
type Field struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Options     []string `json:"options,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
}

// Template 数据集模板
type Template struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	TaskType         string         `json:"task_type"`
	Fields           []Field        `json:"fields"`
	AnnotationSchema map[string]any `json:"annotation_schema"`
	ExportFormat     string         `json:"export_format"`
}

// predefined 内置模板，key = 模板 id
var predefined = map[string]Template{
	"sentiment_analysis": {
		ID:          "sentiment_analysis",
		Name:        "Sentiment Analysis",
		Description: "Text classification for positive/negative/neutral sentiment",
		TaskType:    "classification",
		Fields: []Field{
			{Name: "text", Type: "string", Description: "Input text"},
			{Name: "label", Type: "categorical", Options: []string{"positive", "negative", "neutral"}},
			{Name: "confidence", Type: "float", Optional: true},
		},
		AnnotationSchema: map[string]any{
			"type":         "single_choice",
			"options":      []string{"positive", "negative", "neutral"},
			"instructions": "Select the overall sentiment of the text",
		},
		ExportFormat: "jsonl",
	},
	"text_classification": {
		ID:          "text_classification",
		Name:        "Text Classification",
		Description: "General text classification with custom categories",
		TaskType:    "classification",
		Fields: []Field{
			{Name: "text", Type: "string", Description: "Input text"},
			{Name: "category", Type: "categorical", Options: []string{}},
			{Name: "subcategory", Type: "string", Optional: true},
		},
		AnnotationSchema: map[string]any{
			"type":         "single_choice",
			"options":      []string{},
			"allow_custom": true,
			"instructions": "Classify the text into appropriate category",
		},
		ExportFormat: "jsonl",
	},
	"named_entity_recognition": {
		ID:          "named_entity_recognition",
		Name:        "Named Entity Recognition (NER)",
		Description: "Token-level classification for entity extraction",
		TaskType:    "ner",
		Fields: []Field{
			{Name: "text", Type: "string", Description: "Input text"},
			{Name: "entities", Type: "list", Description: "List of entities with positions"},
			{Name: "tokens", Type: "list", Description: "Tokenized text"},
			{Name: "labels", Type: "list", Description: "BIO labels for each token"},
		},
		AnnotationSchema: map[string]any{
			"type":            "entity_selection",
			"entity_types":    []string{"PERSON", "ORG", "LOC", "MISC"},
			"labeling_scheme": "BIO",
			"instructions":    "Highlight entities in the text and assign appropriate labels",
		},
		ExportFormat: "jsonl",
	},
	"question_answering": {
		ID:          "question_answering",
		Name:        "Question Answering",
		Description: "Reading comprehension and question answering dataset",
		TaskType:    "qa",
		Fields: []Field{
			{Name: "context", Type: "string", Description: "Source text/paragraph"},
			{Name: "question", Type: "string", Description: "Question about the context"},
			{Name: "answer", Type: "string", Description: "Answer text"},
			{Name: "answer_start", Type: "integer", Description: "Character position where answer starts"},
		},
		AnnotationSchema: map[string]any{
			"type":            "span_selection",
			"allow_no_answer": true,
			"instructions":    "Select the text span that answers the question",
		},
		ExportFormat: "jsonl",
	},
	"summarization": {
		ID:          "summarization",
		Name:        "Text Summarization",
		Description: "Abstractive or extractive text summarization",
		TaskType:    "summarization",
		Fields: []Field{
			{Name: "document", Type: "string", Description: "Full document text"},
			{Name: "summary", Type: "string", Description: "Summary text"},
			{Name: "summary_type", Type: "categorical", Options: []string{"abstractive", "extractive"}},
		},
		AnnotationSchema: map[string]any{
			"type":         "text_generation",
			"max_length":   500,
			"instructions": "Write a concise summary of the main points",
		},
		ExportFormat: "jsonl",
	},
}

// Predefined 返回全部内置模板，按 id 排序
func Predefined() []Template {
	list := make([]Template, 0, len(predefined))
	for _, t := range predefined {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Lookup 按 id 查内置模板
func Lookup(id string) (Template, bool) {
	t, ok := predefined[id]
	return t, ok
}

// SampleData 按任务类型生成示例数据，展示导出布局
func SampleData(t Template) map[string]any {
	switch t.TaskType {
	case "classification":
		label := "category_1"
		if t.ID == "sentiment_analysis" {
			label = "positive"
		}
		return map[string]any{
			"text":  "This is a sample text for classification.",
			"label": label,
		}
	case "ner":
		return map[string]any{
			"text": "John Smith works at Microsoft in Seattle.",
			"entities": []map[string]any{
				{"text": "John Smith", "label": "PERSON", "start": 0, "end": 10},
				{"text": "Microsoft", "label": "ORG", "start": 20, "end": 29},
				{"text": "Seattle", "label": "LOC", "start": 33, "end": 40},
			},
		}
	case "qa":
		return map[string]any{
			"context":      "The quick brown fox jumps over the lazy dog.",
			"question":     "What color is the fox?",
			"answer":       "brown",
			"answer_start": 10,
		}
	default:
		sample := make(map[string]any, len(t.Fields))
		for _, field := range t.Fields {
			sample[field.Name] = "sample_" + field.Name
		}
		return sample
	}
}
