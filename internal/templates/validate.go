package templates

import "fmt"

// ValidationResult 模板结构校验结果
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	Message    string   `json:"message"`
	TemplateID string   `json:"template_id"`
}

var validFieldTypes = map[string]struct{}{
	"string": {}, "integer": {}, "float": {}, "boolean": {},
	"categorical": {}, "list": {}, "object": {},
}

var validTaskTypes = map[string]struct{}{
	"classification": {}, "ner": {}, "qa": {},
	"summarization": {}, "sentiment": {}, "custom": {},
}

// Validate 校验模板结构：缺失必填项记 error，可疑之处记 warning。
func Validate(raw map[string]any) ValidationResult {
	result := ValidationResult{
		Errors:     []string{},
		Warnings:   []string{},
		TemplateID: "unknown",
	}
	if id, ok := raw["id"].(string); ok {
		result.TemplateID = id
	}

	for _, key := range []string{"id", "name", "fields"} {
		if _, ok := raw[key]; !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("Missing required field: '%s'", key))
		}
	}

	if rawFields, ok := raw["fields"]; ok {
		fields, ok := rawFields.([]any)
		switch {
		case !ok:
			result.Errors = append(result.Errors, "'fields' must be a list")
		case len(fields) == 0:
			result.Warnings = append(result.Warnings, "Template has no fields defined")
		default:
			validateFields(fields, &result)
		}
	}

	if rawSchema, ok := raw["annotation_schema"]; ok {
		schema, ok := rawSchema.(map[string]any)
		if !ok {
			result.Errors = append(result.Errors, "'annotation_schema' must be an object")
		} else {
			if _, ok := schema["type"]; !ok {
				result.Warnings = append(result.Warnings, "Annotation schema missing 'type'")
			}
			if _, ok := schema["instructions"]; !ok {
				result.Warnings = append(result.Warnings, "Annotation schema missing 'instructions' for users")
			}
		}
	} else {
		result.Warnings = append(result.Warnings, "Template missing 'annotation_schema'")
	}

	if taskType, ok := raw["task_type"].(string); ok {
		if _, valid := validTaskTypes[taskType]; !valid {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Unusual task_type: '%s'", taskType))
		}
	}

	result.Valid = len(result.Errors) == 0
	if result.Valid {
		result.Message = "Template is valid"
	} else {
		result.Message = fmt.Sprintf("Found %d error(s)", len(result.Errors))
	}
	return result
}

func validateFields(fields []any, result *ValidationResult) {
	seen := make(map[string]struct{})
	for i, rawField := range fields {
		field, ok := rawField.(map[string]any)
		if !ok {
			result.Errors = append(result.Errors, fmt.Sprintf("Field %d must be an object", i))
			continue
		}

		name, hasName := field["name"].(string)
		switch {
		case !hasName:
			result.Errors = append(result.Errors, fmt.Sprintf("Field %d missing 'name'", i))
		default:
			if _, dup := seen[name]; dup {
				result.Errors = append(result.Errors, fmt.Sprintf("Duplicate field name: '%s'", name))
			} else {
				seen[name] = struct{}{}
			}
		}

		label := name
		if label == "" {
			label = fmt.Sprintf("%d", i)
		}

		fieldType, hasType := field["type"].(string)
		if !hasType {
			result.Errors = append(result.Errors, fmt.Sprintf("Field '%s' missing 'type'", label))
			continue
		}
		if _, valid := validFieldTypes[fieldType]; !valid {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Field '%s' has non-standard type: '%s'", label, fieldType))
		}
		if fieldType == "categorical" {
			if _, ok := field["options"]; !ok {
				result.Warnings = append(result.Warnings, fmt.Sprintf("Categorical field '%s' should have 'options'", label))
			}
		}
	}
}
