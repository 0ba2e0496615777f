package planner

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object in completion")

// flexInt 接受数字或数字字符串，无法解析时视为缺失
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		f.Value, f.Set = int(n), true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			f.Value, f.Set = n, true
		}
	}
	return nil
}

// flexString 接受字符串或数字，null 与空串视为缺失
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
	}
	return nil
}

// flexStrings 接受字符串数组或单个字符串
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil && strings.TrimSpace(s) != "" {
		*f = flexStrings{strings.TrimSpace(s)}
	}
	return nil
}

func isNull(b []byte) bool {
	return strings.TrimSpace(string(b)) == "null"
}

type rawActivity struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ContentID       flexString `json:"content_id"`
	ContentURL      string     `json:"content_url"`
	DurationMinutes flexInt    `json:"duration_minutes"`
	Day             flexInt    `json:"day"`
	Order           flexInt    `json:"order"`
	LearningBenefit string     `json:"learning_benefit"`
}

type rawPlan struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Subject     string        `json:"subject"`
	Topics      flexStrings   `json:"topics"`
	Activities  []rawActivity `json:"activities"`
}

// unmarshalObject 解析 JSON 对象；个别字段类型不符时 encoding/json 会跳过该字段继续解析，
// 这种情况保留其余字段
func unmarshalObject(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		countRepair("type_mismatch")
		return nil
	}
	return err
}

// decodeCompletion 先整体解析，失败时截取第一个 { 到最后一个 } 再解析
func decodeCompletion(raw string, v any) (extracted bool, err error) {
	if err = unmarshalObject([]byte(raw), v); err == nil {
		return false, nil
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return false, errNoJSONObject
	}
	if err = unmarshalObject([]byte(raw[start:end+1]), v); err != nil {
		return false, err
	}
	return true, nil
}
