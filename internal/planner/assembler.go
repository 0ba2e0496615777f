package planner

import (
	"context"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/pkg/logger"
	"edu_copilot_backend/pkg/tracing"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Assemble 生成覆盖 1..days 每一天的学习计划，不返回错误
func (a *Assembler) Assemble(ctx context.Context, profile model.StudentProfile, subject string, ranked []model.ContentItem, days int) *model.LearningPlan {
	return a.assemble(ctx, profile, subject, ranked, days, false)
}

// AssembleWeekly 周计划固定为 7 天
func (a *Assembler) AssembleWeekly(ctx context.Context, profile model.StudentProfile, subject string, ranked []model.ContentItem) *model.LearningPlan {
	return a.assemble(ctx, profile, subject, ranked, 7, true)
}

func (a *Assembler) assemble(ctx context.Context, profile model.StudentProfile, subject string, ranked []model.ContentItem, days int, weekly bool) *model.LearningPlan {
	if days <= 0 {
		days = defaultDays
	}

	ctx, span := tracing.Tracer.Start(ctx, "planner.assemble")
	defer span.End()
	span.SetAttributes(
		attribute.String("planner.subject", subject),
		attribute.Int("planner.days", days),
		attribute.Int("planner.resources", len(ranked)),
	)

	raw, err := a.completer.Complete(ctx, PlanSystemPrompt, PlanPrompt(&profile, subject, ranked, days, weekly), true)
	if err != nil {
		span.RecordError(err)
		logger.Log.Warn("Plan completion failed, using fallback plan",
			zap.String("subject", subject),
			zap.Error(err))
		countRepair("fallback")
		return a.repair(fallbackPlan(subject, ranked, days), subject, ranked, days, "fallback")
	}
	return a.FromCompletion(raw, subject, ranked, days)
}

// FromCompletion 解析并修复模型输出；无法解析时使用兜底计划
func (a *Assembler) FromCompletion(raw, subject string, ranked []model.ContentItem, days int) *model.LearningPlan {
	if days <= 0 {
		days = defaultDays
	}

	var parsed rawPlan
	extracted, err := decodeCompletion(raw, &parsed)
	if err != nil {
		logger.Log.Warn("Plan completion is not valid JSON, using fallback plan",
			zap.String("subject", subject),
			zap.Int("length", len(raw)),
			zap.Error(err))
		countRepair("fallback")
		return a.repair(fallbackPlan(subject, ranked, days), subject, ranked, days, "fallback")
	}
	if extracted {
		countRepair("extracted_json")
	}
	return a.repair(&parsed, subject, ranked, days, "llm")
}

// fallbackPlan 每天一个活动，依次循环使用 ranked[(day-1)%len]
func fallbackPlan(subject string, ranked []model.ContentItem, days int) *rawPlan {
	p := &rawPlan{
		Title:       "Learning Plan for " + subject,
		Description: "A basic learning plan for " + subject,
		Subject:     subject,
	}
	for day := 1; day <= days; day++ {
		if len(ranked) == 0 {
			p.Activities = append(p.Activities, genericActivity(subject, day))
			continue
		}
		p.Activities = append(p.Activities, contentActivity(subject, &ranked[(day-1)%len(ranked)], day))
	}
	return p
}

func contentActivity(subject string, c *model.ContentItem, day int) rawActivity {
	duration := c.DurationMinutes
	if duration <= 0 {
		duration = defaultActivityDuration
	}
	return rawActivity{
		Title:           fmt.Sprintf("Day %d: %s", day, c.Title),
		Description:     "Study the material: " + c.Description,
		ContentID:       flexString(c.ID),
		ContentURL:      c.URL,
		DurationMinutes: flexInt{Value: duration, Set: true},
		Day:             flexInt{Value: day, Set: true},
		Order:           flexInt{Value: 1, Set: true},
		LearningBenefit: defaultBenefit(subject, day),
	}
}

func genericActivity(subject string, day int) rawActivity {
	return rawActivity{
		Title:           fmt.Sprintf("Day %d: %s practice", day, subject),
		Description:     fmt.Sprintf("Review the key %s concepts covered so far and practice them independently.", subject),
		DurationMinutes: flexInt{Value: defaultActivityDuration, Set: true},
		Day:             flexInt{Value: day, Set: true},
		Order:           flexInt{Value: 1, Set: true},
		LearningBenefit: defaultBenefit(subject, day),
	}
}

func defaultBenefit(subject string, day int) string {
	return fmt.Sprintf("This activity helps build skills in %s and supports the learning progression for day %d.", subject, day)
}

// synthesize 为第 day 天生成一个活动，取 ranked[day%len]
func synthesize(subject string, ranked []model.ContentItem, day int) rawActivity {
	if len(ranked) == 0 {
		return genericActivity(subject, day)
	}
	return contentActivity(subject, &ranked[day%len(ranked)], day)
}

func (a *Assembler) repair(p *rawPlan, subject string, ranked []model.ContentItem, days int, source string) *model.LearningPlan {
	policy := a.ContentIDPolicy()
	byID := make(map[string]*model.ContentItem, len(ranked))
	for i := range ranked {
		if _, ok := byID[ranked[i].ID]; !ok {
			byID[ranked[i].ID] = &ranked[i]
		}
	}

	if len(p.Activities) == 0 {
		countRepair("synthesized_activities")
		for day := 1; day <= days; day++ {
			p.Activities = append(p.Activities, synthesize(subject, ranked, day))
		}
	}

	clamped := 0
	covered := make(map[int]bool, days)
	for i := range p.Activities {
		act := &p.Activities[i]
		if !act.Day.Set {
			act.Day = flexInt{Value: 1, Set: true}
		}
		if act.Day.Value < 1 || act.Day.Value > days {
			clamped++
			act.Day.Value = clampDay(act.Day.Value, days)
		}
		covered[act.Day.Value] = true
	}
	if clamped > 0 {
		countRepair("day_clamped")
	}

	var missing []int
	for day := 1; day <= days; day++ {
		if !covered[day] {
			missing = append(missing, day)
			p.Activities = append(p.Activities, synthesize(subject, ranked, day))
		}
	}
	if len(missing) > 0 {
		countRepair("missing_days")
		logger.Log.Info("Added activities for uncovered days", zap.String("subject", subject), zap.Ints("days", missing))
	}

	now := a.now().UTC()
	plan := &model.LearningPlan{
		Title:        strings.TrimSpace(p.Title),
		Description:  strings.TrimSpace(p.Description),
		Subject:      strings.TrimSpace(p.Subject),
		Topics:       []string(p.Topics),
		Status:       model.StatusNotStarted,
		DurationDays: days,
		Metadata: map[string]any{
			"generated_by": source,
			"generated_at": now.Format(time.RFC3339),
		},
	}
	if plan.Title == "" {
		plan.Title = "Learning Plan for " + subject
	}
	if plan.Description == "" {
		plan.Description = "A personalized learning plan for " + subject
	}
	if plan.Subject == "" {
		plan.Subject = subject
	}
	if len(plan.Topics) == 0 {
		plan.Topics = []string{subject}
	}

	substituted, nulled := 0, 0
	plan.Activities = make([]model.LearningActivity, 0, len(p.Activities))
	for _, act := range p.Activities {
		item, outcome := resolveContent(string(act.ContentID), byID, ranked, policy)
		switch outcome {
		case "substituted":
			substituted++
		case "nulled":
			nulled++
		}
		plan.Activities = append(plan.Activities, buildActivity(act, item, subject))
	}
	if substituted > 0 {
		countRepair("content_substituted")
	}
	if nulled > 0 {
		countRepair("content_nulled")
	}

	SortActivities(plan.Activities)
	return plan
}

// resolveContent 按策略处理 content_id，返回最终引用的内容（可能为 nil）
func resolveContent(id string, byID map[string]*model.ContentItem, ranked []model.ContentItem, policy ContentIDPolicy) (*model.ContentItem, string) {
	if id != "" {
		if item, ok := byID[id]; ok {
			return item, "matched"
		}
	}
	if len(ranked) == 0 {
		if id != "" {
			return nil, "nulled"
		}
		return nil, "none"
	}
	if policy == PolicyNull {
		if id != "" {
			return nil, "nulled"
		}
		return nil, "none"
	}
	if id != "" {
		return &ranked[0], "substituted"
	}
	return &ranked[0], "assigned"
}

func buildActivity(act rawActivity, item *model.ContentItem, subject string) model.LearningActivity {
	day := act.Day.Value
	out := model.LearningActivity{
		Title:           strings.TrimSpace(act.Title),
		Description:     strings.TrimSpace(act.Description),
		DurationMinutes: act.DurationMinutes.Value,
		Day:             day,
		Order:           act.Order.Value,
		Status:          model.StatusNotStarted,
		LearningBenefit: strings.TrimSpace(act.LearningBenefit),
		Metadata: map[string]any{
			"day":  day,
			"week": (day-1)/7 + 1,
		},
	}
	out.ID = model.NewID()

	if !act.Order.Set || out.Order <= 0 {
		out.Order = 1
	}
	if !act.DurationMinutes.Set || out.DurationMinutes <= 0 {
		out.DurationMinutes = defaultActivityDuration
	}
	if out.LearningBenefit == "" {
		out.LearningBenefit = defaultBenefit(subject, day)
	}
	if item != nil {
		id := item.ID
		out.ContentID = &id
		out.ContentURL = item.URL
		if out.Title == "" {
			out.Title = item.Title
		}
		out.Metadata["content_type"] = string(item.ContentType)
		out.Metadata["content_info"] = map[string]any{
			"title":            item.Title,
			"subject":          item.Subject,
			"difficulty_level": string(item.DifficultyLevel),
			"content_type":     string(item.ContentType),
			"grade_level":      item.GradeLevel,
		}
	}
	if out.Title == "" {
		out.Title = fmt.Sprintf("Day %d: %s activity", day, subject)
	}
	return out
}

func clampDay(day, days int) int {
	if day < 1 {
		return 1
	}
	if day > days {
		return days
	}
	return day
}

// SortActivities 按 day、order 稳定排序
func SortActivities(acts []model.LearningActivity) {
	sort.SliceStable(acts, func(i, j int) bool {
		if acts[i].Day != acts[j].Day {
			return acts[i].Day < acts[j].Day
		}
		return acts[i].Order < acts[j].Order
	})
}

// AssemblePeriod 按学习周期生成计划，超过一周时逐周生成并偏移天数
func (a *Assembler) AssemblePeriod(ctx context.Context, profile model.StudentProfile, subject string, ranked []model.ContentItem, period model.LearningPeriod) *model.LearningPlan {
	days := period.Days()
	start := a.now().UTC()

	var plan *model.LearningPlan
	if days <= 7 {
		plan = a.assemble(ctx, profile, subject, ranked, days, days == 7)
	} else {
		plan = a.assembleWeeks(ctx, profile, subject, ranked, days)
		plan.Title = fmt.Sprintf("%s Learning Plan for %s", subject, PeriodTitle(period))
		plan.Description = fmt.Sprintf("A comprehensive %s learning plan for %s spanning %d weeks",
			strings.ToLower(PeriodTitle(period)), subject, (days+6)/7)
	}

	end := start.AddDate(0, 0, days)
	plan.LearningPeriod = period
	plan.DurationDays = days
	plan.StartDate = &start
	plan.EndDate = &end
	plan.Metadata["learning_period"] = string(period)
	plan.Metadata["period_days"] = days
	return plan
}

func (a *Assembler) assembleWeeks(ctx context.Context, profile model.StudentProfile, subject string, ranked []model.ContentItem, days int) *model.LearningPlan {
	weeks := (days + 6) / 7
	var merged *model.LearningPlan
	seenTopic := make(map[string]bool)

	for w := 0; w < weeks; w++ {
		var week *model.LearningPlan
		if ctx.Err() != nil {
			week = a.repair(fallbackPlan(subject, ranked, 7), subject, ranked, 7, "fallback")
		} else {
			week = a.assemble(ctx, profile, subject, ranked, 7, true)
		}

		topics, acts := week.Topics, week.Activities
		if merged == nil {
			merged = week
			merged.Activities = nil
			merged.Topics = nil
		}
		for _, t := range topics {
			if !seenTopic[strings.ToLower(t)] {
				seenTopic[strings.ToLower(t)] = true
				merged.Topics = append(merged.Topics, t)
			}
		}
		for _, act := range acts {
			act.Day += w * 7
			if act.Day > days {
				continue
			}
			act.Metadata["day"] = act.Day
			act.Metadata["week"] = (act.Day-1)/7 + 1
			merged.Activities = append(merged.Activities, act)
		}
	}

	merged.DurationDays = days
	SortActivities(merged.Activities)
	return merged
}

// PeriodTitle one_month -> One Month
func PeriodTitle(p model.LearningPeriod) string {
	parts := strings.Split(string(p), "_")
	for i, s := range parts {
		if s != "" {
			parts[i] = strings.ToUpper(s[:1]) + s[1:]
		}
	}
	return strings.Join(parts, " ")
}
