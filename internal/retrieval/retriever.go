package retrieval

import (
	"context"
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/ranking"
	"edu_copilot_backend/internal/search"
	"edu_copilot_backend/pkg/logger"
	"edu_copilot_backend/pkg/monitoring"
	"edu_copilot_backend/pkg/tracing"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Search(ctx context.Context, req search.Request) ([]search.Document, error)
	Get(ctx context.Context, key string) (search.Document, error)
}

const (
	defaultStageTimeout = 15 * time.Second
	defaultK            = 10
	minUnfilteredTop    = 50
	// 前三阶段取 k 的倍数，为年级后过滤与学习风格选择留出余量
	overFetch           = 2
)

var selectFields = []string{
	"id", "title", "description", "subject", "content_type", "difficulty_level",
	"url", "grade_level", "topics", "keywords", "duration_minutes", "source", "created_at",
}

// Retriever 多阶段回退检索；任何阶段失败都不会向调用方返回错误
type Retriever struct {
	embedder     Embedder
	searcher     Searcher
	stageTimeout time.Duration
	defaultK     int
	bands        ranking.GradeBands
}

func NewRetriever(embedder Embedder, searcher Searcher, cfg config.RetrievalConfig, bands ranking.GradeBands) *Retriever {
	r := &Retriever{
		embedder:     embedder,
		searcher:     searcher,
		stageTimeout: cfg.StageTimeout,
		defaultK:     cfg.DefaultK,
		bands:        bands,
	}
	if r.stageTimeout <= 0 {
		r.stageTimeout = defaultStageTimeout
	}
	if r.defaultK <= 0 {
		r.defaultK = defaultK
	}
	if r.bands.Elementary == 0 || r.bands.MaxGrade == 0 {
		r.bands = ranking.DefaultWeights().Bands
	}
	return r
}

type stageFunc func(ctx context.Context) ([]model.ContentItem, error)

// Retrieve 为学生检索某学科的内容，全部阶段失败时返回空切片
func (r *Retriever) Retrieve(ctx context.Context, profile model.StudentProfile, subject string, k int) []model.ContentItem {
	items, _ := r.RetrieveReport(ctx, profile, subject, k)
	return items
}

// RetrieveReport 与 Retrieve 相同，额外返回每个已执行阶段的结果
func (r *Retriever) RetrieveReport(ctx context.Context, profile model.StudentProfile, subject string, k int) ([]model.ContentItem, []StageOutcome) {
	if k <= 0 {
		k = r.defaultK
	}

	ctx, span := tracing.Tracer.Start(ctx, "retrieval.retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("retrieval.subject", subject),
		attribute.Int("retrieval.grade", profile.GradeLevel),
		attribute.Int("retrieval.k", k),
	)

	filter := BuildFilter(subject, profile.GradeLevel, r.bands)
	stages := []struct {
		stage Stage
		run   stageFunc
	}{
		{StagePersonalized, func(ctx context.Context) ([]model.ContentItem, error) {
			vec, err := r.embedder.Embed(ctx, QueryText(&profile, subject, r.bands))
			if err != nil {
				return nil, &StageError{Stage: StagePersonalized, Code: StageErrorEmbedFailed, Cause: err}
			}
			if len(vec) == 0 {
				return nil, &StageError{Stage: StagePersonalized, Code: StageErrorEmbedFailed, Cause: errors.New("empty embedding")}
			}
			return r.query(ctx, StagePersonalized, search.Request{Vector: vec, Filter: filter, Top: k * overFetch, Select: selectFields})
		}},
		{StageDirect, func(ctx context.Context) ([]model.ContentItem, error) {
			return r.query(ctx, StageDirect, search.Request{
				Query:  "educational content about " + subject,
				Filter: filter,
				Top:    k * overFetch,
				Select: selectFields,
			})
		}},
		{StageSimplified, func(ctx context.Context) ([]model.ContentItem, error) {
			return r.query(ctx, StageSimplified, search.Request{Query: "*", Filter: subjectFilter(subject), Top: k * overFetch, Select: selectFields})
		}},
		{StageUnfiltered, func(ctx context.Context) ([]model.ContentItem, error) {
			top := k * 3
			if top < minUnfilteredTop {
				top = minUnfilteredTop
			}
			items, err := r.query(ctx, StageUnfiltered, search.Request{Query: "*", Top: top, Select: selectFields})
			if err != nil {
				return nil, err
			}
			return matchSubject(items, subject), nil
		}},
	}

	var (
		items    []model.ContentItem
		outcomes []StageOutcome
	)
	for _, s := range stages {
		if ctx.Err() != nil {
			break
		}
		var outcome StageOutcome
		items, outcome = r.runStage(ctx, s.stage, s.run)
		outcomes = append(outcomes, outcome)
		if len(items) > 0 {
			break
		}
	}

	if len(items) == 0 {
		logger.Log.Warn("No content found after all retrieval stages",
			zap.String("subject", subject),
			zap.Int("grade", profile.GradeLevel))
		return []model.ContentItem{}, outcomes
	}

	items = FilterByGrade(items, profile.GradeLevel)
	if len(items) > k {
		items = SelectByStyle(items, profile.LearningStyle, k)
	}
	span.SetAttributes(attribute.Int("retrieval.count", len(items)))
	return items, outcomes
}

func (r *Retriever) runStage(ctx context.Context, stage Stage, run stageFunc) ([]model.ContentItem, StageOutcome) {
	ctx, span := tracing.Tracer.Start(ctx, "retrieval.stage."+string(stage))
	defer span.End()

	stageCtx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	start := time.Now()
	items, err := run(stageCtx)
	elapsed := time.Since(start)
	monitoring.RetrievalStageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())

	outcome := StageOutcome{Stage: stage, Count: len(items), Duration: elapsed}
	switch {
	case err != nil:
		se := &StageError{Stage: stage, Code: StageErrorSearchFailed, Cause: err}
		var typed *StageError
		if errors.As(err, &typed) {
			se.Code, se.Cause = typed.Code, typed.Cause
		}
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
			search.IsCode(err, search.OperationErrorTimeout) {
			se.Code = StageErrorTimeout
		}
		outcome.Err = se
		outcome.Count = 0
		items = nil
		span.RecordError(se)
		logger.Log.Warn("Retrieval stage failed",
			zap.String("stage", string(stage)),
			zap.String("code", string(se.Code)),
			zap.Duration("elapsed", elapsed),
			zap.Error(se.Cause))
	case len(items) == 0:
		outcome.Err = &StageError{Stage: stage, Code: StageErrorEmpty}
		logger.Log.Info("Retrieval stage returned no results", zap.String("stage", string(stage)))
	default:
		logger.Log.Debug("Retrieval stage hit", zap.String("stage", string(stage)), zap.Int("count", len(items)))
	}

	label := "hit"
	if outcome.Err != nil {
		label = string(outcome.Err.Code)
	}
	monitoring.RetrievalStages.WithLabelValues(string(stage), label).Inc()
	span.SetAttributes(attribute.String("retrieval.outcome", label), attribute.Int("retrieval.count", len(items)))
	return items, outcome
}

// query 执行一次检索并解析文档，被拒绝的文档只记日志
func (r *Retriever) query(ctx context.Context, stage Stage, req search.Request) ([]model.ContentItem, error) {
	docs, err := r.searcher.Search(ctx, req)
	if err != nil {
		return nil, &StageError{Stage: stage, Code: StageErrorSearchFailed, Cause: err}
	}
	return parseDocuments(docs), nil
}

func parseDocuments(docs []search.Document) []model.ContentItem {
	items := make([]model.ContentItem, 0, len(docs))
	for _, doc := range docs {
		res := ParseContent(doc)
		if res.Item == nil {
			logger.Log.Warn("Skipping content document", zap.String("reason", res.Skipped), zap.Any("id", doc["id"]))
			continue
		}
		for _, w := range res.Warnings {
			logger.Log.Warn("Content document repaired", zap.String("id", res.Item.ID), zap.String("warning", w))
		}
		items = append(items, *res.Item)
	}
	return items
}

func matchSubject(items []model.ContentItem, subject string) []model.ContentItem {
	if subject == "" {
		return items
	}
	needle := strings.ToLower(subject)
	out := items[:0:0]
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Subject), needle) {
			out = append(out, it)
		}
	}
	return out
}

// FilterByGrade 保留适合 g±1 年级或未标注年级的内容；全部被过滤时返回原列表
func FilterByGrade(items []model.ContentItem, g int) []model.ContentItem {
	if g <= 0 || len(items) == 0 {
		return items
	}
	out := make([]model.ContentItem, 0, len(items))
	for i := range items {
		it := &items[i]
		if len(it.GradeLevel) == 0 || it.HasGrade(g) || it.HasGrade(g-1) || it.HasGrade(g+1) {
			out = append(out, *it)
		}
	}
	if len(out) == 0 {
		logger.Log.Info("Grade filter removed all items, keeping unfiltered results", zap.Int("grade", g))
		return items
	}
	return out
}

// SelectByStyle 先按学习风格偏好每种类型各取一条，再按检索得分补足 k 条
func SelectByStyle(items []model.ContentItem, style model.LearningStyle, k int) []model.ContentItem {
	if k <= 0 || len(items) <= k {
		return items
	}

	selected := make([]model.ContentItem, 0, k)
	used := make([]bool, len(items))
	for _, t := range ranking.PreferredTypes(style) {
		if len(selected) >= k {
			break
		}
		for i := range items {
			if !used[i] && items[i].ContentType == t {
				used[i] = true
				selected = append(selected, items[i])
				break
			}
		}
	}

	rest := make([]int, 0, len(items))
	for i := range items {
		if !used[i] {
			rest = append(rest, i)
		}
	}
	sort.SliceStable(rest, func(a, b int) bool {
		return items[rest[a]].SearchScore > items[rest[b]].SearchScore
	})
	for _, i := range rest {
		if len(selected) >= k {
			break
		}
		selected = append(selected, items[i])
	}
	return selected
}
