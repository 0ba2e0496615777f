package service

import (
	"bytes"
	"context"
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/planner"
	"edu_copilot_backend/internal/repository"
	"edu_copilot_backend/internal/search"
	"edu_copilot_backend/internal/util"
	"edu_copilot_backend/pkg/logger"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const planResourceCount = 10

// Indexer 搜索索引镜像，nil 时不同步
type Indexer interface {
	MergeOrUpload(ctx context.Context, docs []search.Document) error
}

type LearningPlanService struct {
	Plans     *repository.LearningPlanRepository
	Profiles  *ProfileService
	Recommend *RecommendationService
	Assembler *planner.Assembler
	Storage   *StorageService
	Index     Indexer
	Cfg       *config.Config
	Now       func() time.Time
}

func NewLearningPlanService(
	plans *repository.LearningPlanRepository,
	profiles *ProfileService,
	recommend *RecommendationService,
	assembler *planner.Assembler,
	storage *StorageService,
	index Indexer,
	cfg *config.Config,
) *LearningPlanService {
	return &LearningPlanService{
		Plans:     plans,
		Profiles:  profiles,
		Recommend: recommend,
		Assembler: assembler,
		Storage:   storage,
		Index:     index,
		Cfg:       cfg,
		Now:       time.Now,
	}
}

// CreatePlanInput Weekly 优先于 LearningPeriod，二者都未给出时按 Days 生成
type CreatePlanInput struct {
	Subject        string `json:"subject" binding:"required"`
	Days           int    `json:"days" binding:"omitempty,min=1,max=90"`
	LearningPeriod string `json:"learningPeriod"`
	Weekly         bool   `json:"weekly"`
}

type BalancedPlanInput struct {
	DailyMinutes   int    `json:"dailyMinutes" binding:"omitempty,min=15,max=480"`
	LearningPeriod string `json:"learningPeriod"`
}

type PathInput struct {
	Subject string `json:"subject" binding:"required"`
	Weeks   int    `json:"weeks" binding:"omitempty,min=1,max=12"`
}

// StatusResult 活动状态更新后的计划进度
type StatusResult struct {
	ActivityID         string               `json:"activityId"`
	Status             model.ActivityStatus `json:"status"`
	ProgressPercentage float64              `json:"progressPercentage"`
	PlanStatus         model.ActivityStatus `json:"planStatus"`
}

type ProgressSummary struct {
	*repository.ProgressStats
	OverallCompletion float64 `json:"overallCompletion"`
}

func (s *LearningPlanService) Create(ctx context.Context, userID uint, in CreatePlanInput) (*model.LearningPlan, error) {
	profile, err := s.Profiles.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(in.Subject)
	ranked := s.Recommend.RecommendFor(ctx, profile, subject, planResourceCount)

	var plan *model.LearningPlan
	switch {
	case in.Weekly:
		plan = s.Assembler.AssembleWeekly(ctx, profile, subject, ranked)
	case in.LearningPeriod != "":
		plan = s.Assembler.AssemblePeriod(ctx, profile, subject, ranked, model.ParseLearningPeriod(in.LearningPeriod))
	default:
		plan = s.Assembler.Assemble(ctx, profile, subject, ranked, in.Days)
	}
	return s.save(ctx, userID, &profile, plan)
}

// CreateBalanced 各学科内容并发检索，每个 goroutine 只写自己的槽位
func (s *LearningPlanService) CreateBalanced(ctx context.Context, userID uint, in BalancedPlanInput) (*model.LearningPlan, error) {
	profile, err := s.Profiles.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	daily := in.DailyMinutes
	if daily <= 0 {
		daily = s.Cfg.Planner.DailyMinutes
	}
	period := in.LearningPeriod
	if period == "" {
		period = s.Cfg.Planner.DefaultPeriod
	}

	alloc := planner.Allocate(&profile, daily)
	results := make([][]model.ContentItem, len(alloc.Subjects))
	g, gctx := errgroup.WithContext(ctx)
	for i, sa := range alloc.Subjects {
		g.Go(func() error {
			results[i] = s.Recommend.RecommendFor(gctx, profile, sa.Subject, planResourceCount)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	content := make(map[string][]model.ContentItem, len(results))
	for i, sa := range alloc.Subjects {
		content[sa.Subject] = results[i]
	}

	plan := s.Assembler.AssembleBalanced(ctx, profile, alloc, content, model.ParseLearningPeriod(period))
	return s.save(ctx, userID, &profile, plan)
}

func (s *LearningPlanService) CreatePath(ctx context.Context, userID uint, in PathInput) (*model.LearningPlan, error) {
	profile, err := s.Profiles.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(in.Subject)
	ranked := s.Recommend.RecommendFor(ctx, profile, subject, planResourceCount)
	plan := s.Assembler.BuildLearningPath(ctx, profile, subject, ranked, in.Weeks)
	return s.save(ctx, userID, &profile, plan)
}

func (s *LearningPlanService) save(ctx context.Context, userID uint, profile *model.StudentProfile, plan *model.LearningPlan) (*model.LearningPlan, error) {
	plan.StudentID = userID
	plan.ProfileID = profile.ID
	if plan.StartDate == nil {
		start := s.Now().UTC()
		end := start.AddDate(0, 0, plan.DurationDays)
		plan.StartDate, plan.EndDate = &start, &end
	}
	planner.ApplyProgress(plan)
	if err := s.Plans.Create(plan); err != nil {
		return nil, fmt.Errorf("save learning plan: %w", err)
	}
	logger.Log.Info("Learning plan created",
		zap.String("plan_id", plan.ID),
		zap.Uint("student_id", userID),
		zap.String("subject", plan.Subject),
		zap.Int("activities", len(plan.Activities)))
	s.mirror(ctx, plan)
	return plan, nil
}

// mirror 同步计划摘要到搜索索引，失败只记录日志
func (s *LearningPlanService) mirror(ctx context.Context, plan *model.LearningPlan) {
	if s.Index == nil {
		return
	}
	doc := search.Document{
		"id":                  plan.ID,
		"student_id":          strconv.FormatUint(uint64(plan.StudentID), 10),
		"title":               plan.Title,
		"description":         plan.Description,
		"subject":             plan.Subject,
		"topics":              plan.Topics,
		"status":              string(plan.Status),
		"progress_percentage": plan.ProgressPercentage,
		"learning_period":     string(plan.LearningPeriod),
		"activity_count":      len(plan.Activities),
		"updated_at":          s.Now().UTC().Format(time.RFC3339),
	}
	if err := s.Index.MergeOrUpload(ctx, []search.Document{doc}); err != nil {
		logger.Log.Warn("Failed to mirror learning plan to search index",
			zap.String("plan_id", plan.ID),
			zap.Error(err))
	}
}

func (s *LearningPlanService) List(userID uint, subject string, page, limit int) ([]model.LearningPlan, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = util.DefaultPageSize
	}
	if limit > util.MaxPageSize {
		limit = util.MaxPageSize
	}
	return s.Plans.ListByStudent(userID, subject, page, limit)
}

// Get 他人的计划与不存在的计划同样返回 ErrPlanNotFound
func (s *LearningPlanService) Get(userID uint, planID string) (*model.LearningPlan, error) {
	plan, err := s.Plans.FindByID(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPlanNotFound
		}
		return nil, err
	}
	if plan.StudentID != userID {
		return nil, util.ErrPlanNotFound
	}
	return plan, nil
}

// Delete 删除计划及其导出文件；导出文件清理失败只记录日志
func (s *LearningPlanService) Delete(ctx context.Context, userID uint, planID string) error {
	plan, err := s.Get(userID, planID)
	if err != nil {
		return err
	}
	if err := s.Plans.Delete(planID); err != nil {
		return err
	}
	if key, _ := plan.Metadata["export_key"].(string); key != "" {
		s.removeExport(ctx, plan.ID, key)
	}
	return nil
}

func (s *LearningPlanService) removeExport(ctx context.Context, planID, key string) {
	if err := s.Storage.Delete(ctx, key); err != nil {
		logger.Log.Warn("Failed to remove plan export", zap.String("plan_id", planID), zap.String("key", key), zap.Error(err))
	}
}

func (s *LearningPlanService) UpdateActivityStatus(ctx context.Context, userID uint, planID, activityID string, status model.ActivityStatus) (*StatusResult, error) {
	if !status.Valid() {
		return nil, util.ErrInvalidStatus
	}
	plan, err := s.Get(userID, planID)
	if err != nil {
		return nil, err
	}

	var act *model.LearningActivity
	for i := range plan.Activities {
		if plan.Activities[i].ID == activityID {
			act = &plan.Activities[i]
			break
		}
	}
	if act == nil {
		return nil, util.ErrActivityNotFound
	}

	act.Status = status
	if status == model.StatusCompleted {
		now := s.Now()
		act.CompletedAt = &now
	} else {
		act.CompletedAt = nil
	}

	planner.ApplyProgress(plan)
	if err := s.Plans.UpdateActivityStatus(act, plan.ProgressPercentage, plan.Status); err != nil {
		return nil, fmt.Errorf("update activity status: %w", err)
	}
	s.mirror(ctx, plan)

	return &StatusResult{
		ActivityID:         act.ID,
		Status:             act.Status,
		ProgressPercentage: plan.ProgressPercentage,
		PlanStatus:         plan.Status,
	}, nil
}

// Adapt 根据学习表现调整计划，候选内容来自计划学科的检索结果
func (s *LearningPlanService) Adapt(ctx context.Context, userID uint, planID string, perf model.PerformanceMetrics) (*model.LearningPlan, planner.AdaptResult, error) {
	plan, err := s.Get(userID, planID)
	if err != nil {
		return nil, planner.AdaptResult{}, err
	}

	hasCompleted := false
	for _, a := range plan.Activities {
		if a.Status == model.StatusCompleted {
			hasCompleted = true
			break
		}
	}
	if !hasCompleted {
		return nil, planner.AdaptResult{}, util.ErrNothingToAdapt
	}

	profile, err := s.Profiles.Snapshot(userID)
	if err != nil {
		return nil, planner.AdaptResult{}, err
	}
	pool := s.Recommend.Pool(ctx, profile, plan.Subject)

	res := planner.AdaptForPerformance(plan, perf, pool)
	if res.Changed == 0 {
		return plan, res, nil
	}

	if plan.Metadata == nil {
		plan.Metadata = map[string]any{}
	}
	plan.Metadata["adaptation"] = string(res.Adaptation)
	plan.Metadata["adapted_at"] = s.Now().UTC().Format(time.RFC3339)
	if err := s.Plans.SaveAdapted(plan); err != nil {
		return nil, res, fmt.Errorf("save adapted plan: %w", err)
	}
	planner.SortActivities(plan.Activities)
	s.mirror(ctx, plan)
	return plan, res, nil
}

func (s *LearningPlanService) Progress(userID uint) (*ProgressSummary, error) {
	stats, err := s.Plans.Stats(userID)
	if err != nil {
		return nil, err
	}
	summary := &ProgressSummary{ProgressStats: stats}
	if stats.TotalActivities > 0 {
		pct := float64(stats.CompletedActivities) / float64(stats.TotalActivities) * 100
		summary.OverallCompletion = math.Round(pct*100) / 100
	}
	return summary, nil
}

// Export 把计划 JSON 快照写入存储，并在 metadata 中记录地址
func (s *LearningPlanService) Export(ctx context.Context, userID uint, planID string) (string, error) {
	plan, err := s.Get(userID, planID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal plan: %w", err)
	}

	prefix := strings.Trim(s.Cfg.Storage.ExportPrefix, "/")
	if prefix == "" {
		prefix = "plans"
	}
	filename := fmt.Sprintf("%s/%d/%s-%s.json", prefix, userID, plan.ID, s.Now().UTC().Format("20060102T150405"))
	url, err := s.Storage.Upload(ctx, filename, bytes.NewReader(data), int64(len(data)), util.MimeJSON)
	if err != nil {
		return "", fmt.Errorf("upload plan export: %w", err)
	}

	if plan.Metadata == nil {
		plan.Metadata = map[string]any{}
	}
	previous, _ := plan.Metadata["export_key"].(string)
	plan.Metadata["export_url"] = url
	plan.Metadata["export_key"] = filename
	if err := s.Plans.UpdateMetadata(plan); err != nil {
		logger.Log.Warn("Failed to record export url", zap.String("plan_id", plan.ID), zap.Error(err))
		return url, nil
	}
	// 每个计划只保留最近一次导出
	if previous != "" && previous != filename {
		s.removeExport(ctx, plan.ID, previous)
	}
	return url, nil
}
