package util

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// QueryInt 读取整数查询参数，缺失或非法时返回 def，结果不超过 max（max<=0 表示不限）
func QueryInt(c *gin.Context, key string, def, max int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

// SplitCSV "a, b,,c" -> [a b c]
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
