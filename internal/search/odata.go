package search

import (
	"strconv"
	"strings"
)

// Quote 生成 OData 字符串字面量，单引号转义为两个单引号
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func Eq(field, value string) string {
	return field + " eq " + Quote(value)
}

func Ne(field, value string) string {
	return field + " ne " + Quote(value)
}

// Or 用 or 连接非空子句，多于一个时加括号
func Or(parts ...string) string {
	parts = nonEmpty(parts)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return "(" + strings.Join(parts, " or ") + ")"
}

// And 用 and 连接非空子句
func And(parts ...string) string {
	return strings.Join(nonEmpty(parts), " and ")
}

func lambdaVar(field string) string {
	if field == "" {
		return "x"
	}
	return strings.ToLower(field[:1])
}

// AnyEqInt 集合字段包含任意一个整数，如 (grade_level/any(g: g eq 4) or grade_level/any(g: g eq 5))
func AnyEqInt(field string, values []int) string {
	v := lambdaVar(field)
	parts := make([]string, 0, len(values))
	for _, n := range values {
		parts = append(parts, field+"/any("+v+": "+v+" eq "+strconv.Itoa(n)+")")
	}
	return Or(parts...)
}

// AnyEqString 集合字段包含任意一个字符串，如 topics/any(t: t eq 'fractions')
func AnyEqString(field string, values []string) string {
	v := lambdaVar(field)
	parts := make([]string, 0, len(values))
	for _, s := range values {
		parts = append(parts, field+"/any("+v+": "+v+" eq "+Quote(s)+")")
	}
	return Or(parts...)
}

// EqAny 标量字段等于任意一个取值
func EqAny(field string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, s := range values {
		parts = append(parts, Eq(field, s))
	}
	return Or(parts...)
}

func nonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
