package util

import (
	"edu_copilot_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构，code 与 HTTP 状态码一致
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type PageResponse struct {
	List  any   `json:"list"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func reply(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Code: code, Message: message, Data: data})
}

func Success(c *gin.Context, data any) {
	reply(c, http.StatusOK, "success", data)
}

func Created(c *gin.Context, data any) {
	reply(c, http.StatusCreated, "created", data)
}

// Page 分页列表
func Page(c *gin.Context, list any, total int64, page, limit int) {
	Success(c, PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

func Error(c *gin.Context, code int, message string) {
	reply(c, code, message, nil)
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

// LogInternalError 记录原始错误，客户端只收到通用提示
func LogInternalError(c *gin.Context, err error) {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	}
	if claims := GetUserFromContext(c); claims != nil {
		fields = append(fields, zap.Uint("user_id", claims.UserID))
	}
	logger.Log.Error("Internal server error", fields...)
	Error(c, http.StatusInternalServerError, "Internal server error")
}
