package controller

import (
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/service"
	"edu_copilot_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

type LearningPlanController struct {
	PlanService *service.LearningPlanService
}

func NewLearningPlanController(planService *service.LearningPlanService) *LearningPlanController {
	return &LearningPlanController{PlanService: planService}
}

// CreatePlan godoc
// @Summary 生成学习计划
// @Description 根据档案与推荐内容调用大模型生成计划；weekly 优先，其次 learningPeriod，否则按 days
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreatePlanInput true "计划参数"
// @Success 201 {object} util.Response{data=model.LearningPlan}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "档案不存在"
// @Router /api/learning-plans [post]
func (c *LearningPlanController) CreatePlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.CreatePlanInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	plan, err := c.PlanService.Create(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, plan)
}

// CreateBalancedPlan godoc
// @Summary 生成多学科均衡计划
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.BalancedPlanInput false "每日时长与周期"
// @Success 201 {object} util.Response{data=model.LearningPlan}
// @Router /api/learning-plans/balanced [post]
func (c *LearningPlanController) CreateBalancedPlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.BalancedPlanInput
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	plan, err := c.PlanService.CreateBalanced(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, plan)
}

// CreatePathPlan godoc
// @Summary 生成按周组织的学习路径
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.PathInput true "学科与周数"
// @Success 201 {object} util.Response{data=model.LearningPlan}
// @Router /api/learning-plans/path [post]
func (c *LearningPlanController) CreatePathPlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.PathInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	plan, err := c.PlanService.CreatePath(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, plan)
}

// ListPlans godoc
// @Summary 学习计划列表
// @Tags 学习计划
// @Produce json
// @Security ApiKeyAuth
// @Param subject query string false "学科"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/learning-plans [get]
func (c *LearningPlanController) ListPlans(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	page := util.QueryInt(ctx, "page", 1, 0)
	limit := util.QueryInt(ctx, "limit", util.DefaultPageSize, util.MaxPageSize)

	plans, total, err := c.PlanService.List(userID, strings.TrimSpace(ctx.Query("subject")), page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Page(ctx, plans, total, page, limit)
}

// GetPlan godoc
// @Summary 学习计划详情
// @Tags 学习计划
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "计划ID"
// @Success 200 {object} util.Response{data=model.LearningPlan}
// @Failure 404 {object} util.Response "计划不存在"
// @Router /api/learning-plans/{id} [get]
func (c *LearningPlanController) GetPlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	plan, err := c.PlanService.Get(userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, plan)
}

type ActivityStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateActivityStatus godoc
// @Summary 更新活动状态
// @Description 同步重新计算计划进度与状态
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "计划ID"
// @Param activityId path string true "活动ID"
// @Param body body ActivityStatusRequest true "新状态"
// @Success 200 {object} util.Response{data=service.StatusResult}
// @Failure 400 {object} util.Response "状态非法"
// @Failure 404 {object} util.Response "计划或活动不存在"
// @Router /api/learning-plans/{id}/activities/{activityId} [put]
func (c *LearningPlanController) UpdateActivityStatus(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req ActivityStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.PlanService.UpdateActivityStatus(ctx.Request.Context(), userID, ctx.Param("id"), ctx.Param("activityId"),
		model.ActivityStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// AdaptPlan godoc
// @Summary 按学习表现调整计划
// @Description 测验或写作较差时换成入门内容，表现优秀时在最后一天追加挑战内容
// @Tags 学习计划
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "计划ID"
// @Param body body model.PerformanceMetrics true "学习表现"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "尚无已完成活动"
// @Router /api/learning-plans/{id}/adapt [post]
func (c *LearningPlanController) AdaptPlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var perf model.PerformanceMetrics
	if err := ctx.ShouldBindJSON(&perf); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	plan, res, err := c.PlanService.Adapt(ctx.Request.Context(), userID, ctx.Param("id"), perf)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"adaptation": res.Adaptation,
		"changed":    res.Changed,
		"plan":       plan,
	})
}

// ExportPlan godoc
// @Summary 导出学习计划
// @Description 把计划 JSON 快照写入对象存储并返回访问地址
// @Tags 学习计划
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "计划ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/learning-plans/{id}/export [post]
func (c *LearningPlanController) ExportPlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	url, err := c.PlanService.Export(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

// DeletePlan godoc
// @Summary 删除学习计划
// @Tags 学习计划
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "计划ID"
// @Success 200 {object} util.Response
// @Router /api/learning-plans/{id} [delete]
func (c *LearningPlanController) DeletePlan(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	if err := c.PlanService.Delete(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetProgress godoc
// @Summary 学习进度汇总
// @Tags 学习计划
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProgressSummary}
// @Router /api/progress [get]
func (c *LearningPlanController) GetProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	summary, err := c.PlanService.Progress(userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
