package retrieval

import (
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/search"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Result 单条索引文档的解析结果；Item 为 nil 时 Skipped 给出原因
type Result struct {
	Item     *model.ContentItem
	Skipped  string
	Warnings []string
}

var requiredFields = []string{"id", "title", "content_type", "subject", "difficulty_level", "url"}

// ParseContent 校验并转换索引文档，缺少必填字段的文档被拒绝
func ParseContent(doc search.Document) Result {
	if doc == nil {
		return Result{Skipped: "empty document"}
	}

	var missing []string
	for _, f := range requiredFields {
		if s, ok := asString(doc[f]); !ok || strings.TrimSpace(s) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return Result{Skipped: "missing required fields: " + strings.Join(missing, ", ")}
	}

	var res Result
	id, _ := asString(doc["id"])
	title, _ := asString(doc["title"])
	subject, _ := asString(doc["subject"])
	url, _ := asString(doc["url"])
	rawType, _ := asString(doc["content_type"])
	rawLevel, _ := asString(doc["difficulty_level"])

	ct := model.ContentType(strings.ToLower(strings.TrimSpace(rawType)))
	if !ct.Valid() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("invalid content_type %q, using article", rawType))
		ct = model.ContentTypeArticle
	}
	level := model.DifficultyLevel(strings.ToLower(strings.TrimSpace(rawLevel)))
	if !level.Valid() {
		res.Warnings = append(res.Warnings, fmt.Sprintf("invalid difficulty_level %q, using intermediate", rawLevel))
		level = model.DifficultyIntermediate
	}

	item := &model.ContentItem{
		ID:              id,
		Title:           title,
		ContentType:     ct,
		Subject:         subject,
		DifficultyLevel: level,
		URL:             url,
		Topics:          asStrings(doc["topics"]),
		Keywords:        asStrings(doc["keywords"]),
		Source:          model.DefaultContentSource,
		DurationMinutes: model.DefaultContentDuration,
	}
	item.Description, _ = asString(doc["description"])

	grades, bad := asInts(doc["grade_level"])
	item.GradeLevel = grades
	if bad > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("ignored %d unparsable grade_level values", bad))
	}

	if v, ok := doc["duration_minutes"]; ok && v != nil {
		if d, ok := asInt(v); ok && d > 0 {
			item.DurationMinutes = d
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("invalid duration_minutes %v, using %d", v, model.DefaultContentDuration))
		}
	}
	if s, ok := asString(doc["source"]); ok && s != "" {
		item.Source = s
	}
	if s, ok := asString(doc["created_at"]); ok && s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			item.CreatedAt = &t
		} else {
			res.Warnings = append(res.Warnings, "unparsable created_at "+s)
		}
	}
	if m, ok := doc["metadata"].(map[string]any); ok {
		item.Metadata = m
	}
	if vec := asVector(doc["embedding"]); len(vec) > 0 {
		item.Embedding = vec
	}
	if score, ok := doc["@search.score"].(float64); ok {
		item.SearchScore = score
	}

	res.Item = item
	return res
}

func asString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

// asInts 接受单个整数、数字字符串或它们的列表，返回无法解析的个数
func asInts(v any) ([]int, int) {
	if v == nil {
		return nil, 0
	}
	var raw []any
	switch x := v.(type) {
	case []any:
		raw = x
	case []int:
		return append([]int(nil), x...), 0
	case []string:
		for _, s := range x {
			raw = append(raw, s)
		}
	default:
		raw = []any{x}
	}

	out := make([]int, 0, len(raw))
	bad := 0
	for _, r := range raw {
		if n, ok := asInt(r); ok {
			out = append(out, n)
		} else {
			bad++
		}
	}
	return out, bad
}

func asStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, 0, len(x))
		for _, r := range x {
			if s, ok := r.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if x != "" {
			return []string{x}
		}
	}
	return nil
}

func asVector(v any) []float32 {
	switch x := v.(type) {
	case []float32:
		return x
	case []any:
		out := make([]float32, 0, len(x))
		for _, r := range x {
			f, ok := r.(float64)
			if !ok {
				return nil
			}
			out = append(out, float32(f))
		}
		return out
	}
	return nil
}
