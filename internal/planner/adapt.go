package planner

import (
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/pkg/logger"

	"go.uber.org/zap"
)

const (
	easierQuizBelow     = 0.6
	easierWritingBelow  = 60.0
	harderQuizAbove     = 0.85
	harderWritingAbove  = 80.0
	maxChallengeAppends = 2
)

type Adaptation string

const (
	AdaptationNone   Adaptation = "none"
	AdaptationEasier Adaptation = "easier"
	AdaptationHarder Adaptation = "harder"
)

type AdaptResult struct {
	Adaptation Adaptation `json:"adaptation"`
	Changed    int        `json:"changed"`
}

// AdaptForPerformance 根据测验和写作表现调整计划难度，至少完成一个活动后才生效
func AdaptForPerformance(plan *model.LearningPlan, perf model.PerformanceMetrics, pool []model.ContentItem) AdaptResult {
	completed := 0
	for _, a := range plan.Activities {
		if a.Status == model.StatusCompleted {
			completed++
		}
	}
	if completed == 0 {
		return AdaptResult{Adaptation: AdaptationNone}
	}

	quiz, writing := perf.QuizScore(), perf.Writing()
	var res AdaptResult
	switch {
	case quiz < easierQuizBelow || writing < easierWritingBelow:
		res = AdaptResult{Adaptation: AdaptationEasier, Changed: makeEasier(plan, pool)}
	case quiz > harderQuizAbove && writing > harderWritingAbove:
		res = AdaptResult{Adaptation: AdaptationHarder, Changed: makeHarder(plan, pool)}
	default:
		return AdaptResult{Adaptation: AdaptationNone}
	}

	if res.Changed > 0 {
		ApplyProgress(plan)
	}
	logger.Log.Info("Plan adapted for performance",
		zap.String("plan_id", plan.ID),
		zap.String("adaptation", string(res.Adaptation)),
		zap.Int("changed", res.Changed),
		zap.Float64("quiz", quiz),
		zap.Float64("writing", writing))
	return res
}

func usedContent(plan *model.LearningPlan) map[string]bool {
	used := make(map[string]bool, len(plan.Activities))
	for _, a := range plan.Activities {
		if a.ContentID != nil {
			used[*a.ContentID] = true
		}
	}
	return used
}

func unusedByLevel(pool []model.ContentItem, used map[string]bool, level model.DifficultyLevel) []model.ContentItem {
	var out []model.ContentItem
	for _, c := range pool {
		if c.DifficultyLevel == level && !used[c.ID] {
			used[c.ID] = true
			out = append(out, c)
		}
	}
	return out
}

// makeEasier 未开始且非入门难度的活动替换为未使用的入门内容
func makeEasier(plan *model.LearningPlan, pool []model.ContentItem) int {
	levels := make(map[string]model.DifficultyLevel, len(pool))
	for _, c := range pool {
		levels[c.ID] = c.DifficultyLevel
	}
	beginner := unusedByLevel(pool, usedContent(plan), model.DifficultyBeginner)

	changed, next := 0, 0
	for i := range plan.Activities {
		if next >= len(beginner) {
			break
		}
		act := &plan.Activities[i]
		if act.Status != model.StatusNotStarted {
			continue
		}
		if act.ContentID != nil && levels[*act.ContentID] == model.DifficultyBeginner {
			continue
		}

		c := beginner[next]
		next++
		id := c.ID
		act.Title = "[EASIER] " + c.Title
		act.Description = "This activity has been adjusted to help you build foundational skills: " + c.Description
		act.ContentID = &id
		act.ContentURL = c.URL
		if act.Metadata == nil {
			act.Metadata = map[string]any{}
		}
		act.Metadata["adapted"] = string(AdaptationEasier)
		act.Metadata["content_type"] = string(c.ContentType)
		changed++
	}
	return changed
}

// makeHarder 在最后一天追加至多两个未使用的进阶内容
func makeHarder(plan *model.LearningPlan, pool []model.ContentItem) int {
	advanced := unusedByLevel(pool, usedContent(plan), model.DifficultyAdvanced)
	if len(advanced) > maxChallengeAppends {
		advanced = advanced[:maxChallengeAppends]
	}
	if len(advanced) == 0 {
		return 0
	}

	maxOrder, lastDay := 0, plan.DurationDays
	for _, a := range plan.Activities {
		if a.Order > maxOrder {
			maxOrder = a.Order
		}
		if a.Day > lastDay {
			lastDay = a.Day
		}
	}
	if lastDay <= 0 {
		lastDay = 1
	}

	for i, c := range advanced {
		id := c.ID
		act := model.LearningActivity{
			PlanID:          plan.ID,
			Title:           "[CHALLENGE] " + c.Title,
			Description:     "This advanced activity will challenge your skills: " + c.Description,
			ContentID:       &id,
			ContentURL:      c.URL,
			DurationMinutes: challengeDuration,
			Day:             lastDay,
			Order:           maxOrder + i + 1,
			Status:          model.StatusNotStarted,
			LearningBenefit: "Extends mastery of " + plan.Subject + " with more advanced material.",
			Metadata: map[string]any{
				"adapted":      string(AdaptationHarder),
				"content_type": string(c.ContentType),
				"day":          lastDay,
				"week":         (lastDay-1)/7 + 1,
			},
		}
		act.ID = model.NewID()
		plan.Activities = append(plan.Activities, act)
	}
	return len(advanced)
}
