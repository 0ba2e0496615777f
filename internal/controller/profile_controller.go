package controller

import (
	"edu_copilot_backend/internal/service"
	"edu_copilot_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	ProfileService *service.ProfileService
}

func NewProfileController(profileService *service.ProfileService) *ProfileController {
	return &ProfileController{ProfileService: profileService}
}

// CreateProfile godoc
// @Summary 创建学生档案
// @Description 每个用户只能有一份档案
// @Tags 学生档案
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ProfileInput true "档案信息"
// @Success 201 {object} util.Response{data=model.StudentProfile}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "档案已存在"
// @Router /api/profiles [post]
func (c *ProfileController) CreateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.ProfileService.Create(userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, profile)
}

// GetProfile godoc
// @Summary 获取当前用户的学生档案
// @Tags 学生档案
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.StudentProfile}
// @Failure 404 {object} util.Response "档案不存在"
// @Router /api/profiles/me [get]
func (c *ProfileController) GetProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	profile, err := c.ProfileService.Get(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}

// UpdateProfile godoc
// @Summary 更新学生档案
// @Description 只修改请求中出现的字段
// @Tags 学生档案
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ProfileInput true "档案信息"
// @Success 200 {object} util.Response{data=model.StudentProfile}
// @Failure 404 {object} util.Response "档案不存在"
// @Router /api/profiles/me [put]
func (c *ProfileController) UpdateProfile(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	profile, err := c.ProfileService.Update(userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}
