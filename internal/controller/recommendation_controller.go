package controller

import (
	"edu_copilot_backend/internal/service"
	"edu_copilot_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

type RecommendationController struct {
	RecommendationService *service.RecommendationService
}

func NewRecommendationController(recommendationService *service.RecommendationService) *RecommendationController {
	return &RecommendationController{RecommendationService: recommendationService}
}

// GetRecommendations godoc
// @Summary 个性化内容推荐
// @Description 四级检索后按档案排序并保证内容类型多样
// @Tags 推荐
// @Produce json
// @Security ApiKeyAuth
// @Param subject query string true "学科"
// @Param k query int false "返回数量，默认 10，最大 50"
// @Success 200 {object} util.Response{data=[]model.ContentItem}
// @Failure 400 {object} util.Response "缺少学科"
// @Failure 404 {object} util.Response "档案不存在"
// @Router /api/recommendations [get]
func (c *RecommendationController) GetRecommendations(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	subject := strings.TrimSpace(ctx.Query("subject"))
	if subject == "" {
		util.BadRequest(ctx, "subject is required")
		return
	}
	k := util.QueryInt(ctx, "k", util.DefaultRecommendK, util.MaxRecommendK)

	items, err := c.RecommendationService.Recommend(ctx.Request.Context(), userID, subject, k)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// GetByStyle godoc
// @Summary 按学习风格分组推荐
// @Tags 推荐
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "每组上限相关的总数，默认 10"
// @Success 200 {object} util.Response{data=object}
// @Router /api/recommendations/by-style [get]
func (c *RecommendationController) GetByStyle(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	limit := util.QueryInt(ctx, "limit", util.DefaultRecommendK, util.MaxRecommendK)

	groups, err := c.RecommendationService.ByStyle(ctx.Request.Context(), userID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, groups)
}

// GetByTopics godoc
// @Summary 按主题推荐
// @Tags 推荐
// @Produce json
// @Security ApiKeyAuth
// @Param topics query string true "逗号分隔的主题"
// @Param difficulty query string false "beginner | intermediate | advanced"
// @Param k query int false "返回数量"
// @Success 200 {object} util.Response{data=[]model.ContentItem}
// @Router /api/recommendations/by-topics [get]
func (c *RecommendationController) GetByTopics(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	topics := util.SplitCSV(ctx.Query("topics"))
	if len(topics) == 0 {
		util.BadRequest(ctx, "topics is required")
		return
	}
	k := util.QueryInt(ctx, "k", util.DefaultRecommendK, util.MaxRecommendK)

	items, err := c.RecommendationService.ByTopics(ctx.Request.Context(), userID, topics, ctx.Query("difficulty"), k)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// GetByMediaType godoc
// @Summary 按内容类型推荐
// @Tags 推荐
// @Produce json
// @Security ApiKeyAuth
// @Param type path string true "内容类型，如 video"
// @Param subject query string false "学科"
// @Param k query int false "返回数量"
// @Success 200 {object} util.Response{data=[]model.ContentItem}
// @Router /api/recommendations/media/{type} [get]
func (c *RecommendationController) GetByMediaType(ctx *gin.Context) {
	k := util.QueryInt(ctx, "k", util.DefaultRecommendK, util.MaxRecommendK)
	items := c.RecommendationService.ByMediaType(ctx.Request.Context(), ctx.Param("type"), ctx.Query("subject"), k)
	util.Success(ctx, items)
}

// GetProgression godoc
// @Summary 跨年级内容进阶
// @Tags 推荐
// @Produce json
// @Security ApiKeyAuth
// @Param subject query string true "学科"
// @Param topic query string true "主题"
// @Param start query int false "起始年级"
// @Param end query int false "结束年级"
// @Success 200 {object} util.Response{data=object}
// @Router /api/recommendations/progression [get]
func (c *RecommendationController) GetProgression(ctx *gin.Context) {
	subject := strings.TrimSpace(ctx.Query("subject"))
	topic := strings.TrimSpace(ctx.Query("topic"))
	if subject == "" || topic == "" {
		util.BadRequest(ctx, "subject and topic are required")
		return
	}
	start := util.QueryInt(ctx, "start", 1, 12)
	end := util.QueryInt(ctx, "end", start, 12)

	util.Success(ctx, c.RecommendationService.Progression(ctx.Request.Context(), subject, topic, start, end))
}

// GetContent godoc
// @Summary 内容详情
// @Tags 推荐
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=model.ContentItem}
// @Failure 404 {object} util.Response "内容不存在"
// @Router /api/content/{id} [get]
func (c *RecommendationController) GetContent(ctx *gin.Context) {
	item, err := c.RecommendationService.Content(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, item)
}

// GetSimilar godoc
// @Summary 相似内容
// @Tags 推荐
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param k query int false "返回数量"
// @Success 200 {object} util.Response{data=[]model.ContentItem}
// @Router /api/content/{id}/similar [get]
func (c *RecommendationController) GetSimilar(ctx *gin.Context) {
	k := util.QueryInt(ctx, "k", util.DefaultRecommendK, util.MaxRecommendK)
	util.Success(ctx, c.RecommendationService.Similar(ctx.Request.Context(), ctx.Param("id"), k))
}

type WarmupRequest struct {
	Subjects []string `json:"subjects"`
}

// Warmup godoc
// @Summary 预热推荐缓存
// @Description 教师或管理员触发，未指定学科时使用各档案的兴趣学科
// @Tags 推荐
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body WarmupRequest false "学科列表"
// @Success 200 {object} util.Response{data=object}
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/admin/recommendations/warmup [post]
func (c *RecommendationController) Warmup(ctx *gin.Context) {
	var req WarmupRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	warmed, err := c.RecommendationService.Warmup(ctx.Request.Context(), c.RecommendationService.Profiles.Repo, util.SplitCSV(strings.Join(req.Subjects, ",")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"warmed": warmed})
}
