package controller

import (
	"edu_copilot_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}

// respondError 业务错误映射为对应的 HTTP 状态码，其余按 500 处理
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrProfileNotFound):
		util.NotFound(ctx, "Student profile not found")
	case errors.Is(err, util.ErrPlanNotFound):
		util.NotFound(ctx, "Learning plan not found")
	case errors.Is(err, util.ErrActivityNotFound):
		util.NotFound(ctx, "Learning activity not found")
	case errors.Is(err, util.ErrContentNotFound):
		util.NotFound(ctx, "Content not found")
	case errors.Is(err, util.ErrEmailRegistered):
		util.Conflict(ctx, "Email already registered")
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, util.ErrProfileExists):
		util.Conflict(ctx, "Student profile already exists")
	case errors.Is(err, util.ErrInvalidStatus):
		util.BadRequest(ctx, "status must be one of not_started, in_progress, completed")
	case errors.Is(err, util.ErrNothingToAdapt):
		util.BadRequest(ctx, "Complete at least one activity before adapting the plan")
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
