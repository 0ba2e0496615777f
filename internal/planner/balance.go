package planner

import (
	"context"
	"edu_copilot_backend/internal/model"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultDailyMinutes  = 60
	minSubjectMinutes    = 10
	maxPerSubjectPerDay  = 2
	balancedSubjectLabel = "Multiple Subjects"
)

var subjectCategories = []struct {
	Subject  string
	Keywords []string
}{
	{"Mathematics", []string{"math", "mathematics", "algebra", "geometry", "calculus", "arithmetic"}},
	{"Science", []string{"science", "biology", "physics", "chemistry", "laboratory"}},
	{"English", []string{"english", "writing", "reading", "literature", "grammar", "vocabulary"}},
	{"History", []string{"history", "social studies", "geography", "civics"}},
	{"Art", []string{"art", "creative", "drawing", "painting"}},
}

// Categorize 按关键词把自由文本映射到学科大类，保持首次出现顺序
func Categorize(areas []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, area := range areas {
		lower := strings.ToLower(area)
		for _, cat := range subjectCategories {
			if seen[cat.Subject] {
				continue
			}
			for _, kw := range cat.Keywords {
				if strings.Contains(lower, kw) {
					seen[cat.Subject] = true
					out = append(out, cat.Subject)
					break
				}
			}
		}
	}
	return out
}

type SubjectAllocation struct {
	Subject     string `json:"subject"`
	Minutes     int    `json:"minutes"`
	Improvement bool   `json:"improvement"`
	Interest    bool   `json:"interest"`
	Strength    bool   `json:"strength"`
}

// Allocation 多学科均衡计划的学科与每日时长分配
type Allocation struct {
	DailyMinutes int                 `json:"daily_minutes"`
	Focus        []string            `json:"focus_areas"`
	Improvement  []string            `json:"improvement_areas"`
	Interests    []string            `json:"interest_areas"`
	Strengths    []string            `json:"strength_areas"`
	Subjects     []SubjectAllocation `json:"subjects"`
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func floorInt(f float64) int {
	return int(math.Floor(f + 1e-9))
}

// Allocate 优先待提高学科，其次兴趣、强项，都没有时覆盖全部学科
func Allocate(profile *model.StudentProfile, dailyMinutes int) Allocation {
	if dailyMinutes <= 0 {
		dailyMinutes = DefaultDailyMinutes
	}

	improvement := Categorize(profile.AreasForImprovement)
	strengths := Categorize(profile.Strengths)
	interests := Categorize(profile.Interests)

	focus := improvement
	switch {
	case len(focus) > 0:
	case len(interests) > 0:
		focus = interests
	case len(strengths) > 0:
		focus = strengths
	default:
		for _, cat := range subjectCategories {
			focus = append(focus, cat.Subject)
		}
	}

	base := float64(dailyMinutes / len(focus))
	subjects := make([]SubjectAllocation, 0, len(focus))
	total := 0
	for _, s := range focus {
		sa := SubjectAllocation{
			Subject:     s,
			Improvement: contains(improvement, s) && !contains(strengths, s),
			Interest:    contains(interests, s),
			Strength:    contains(strengths, s),
		}
		minutes := int(base)
		switch {
		case sa.Improvement:
			minutes = max(15, floorInt(base*1.3))
		case sa.Interest:
			minutes = max(12, floorInt(base*1.1))
		case sa.Strength:
			minutes = max(minSubjectMinutes, floorInt(base*0.7))
		}
		sa.Minutes = minutes
		total += minutes
		subjects = append(subjects, sa)
	}

	scale := 1.0
	if total > 0 {
		scale = float64(dailyMinutes) / float64(total)
	}
	for i := range subjects {
		subjects[i].Minutes = max(minSubjectMinutes, floorInt(float64(subjects[i].Minutes)*scale))
	}

	var improvementAreas []string
	for _, s := range focus {
		if !contains(strengths, s) {
			improvementAreas = append(improvementAreas, s)
		}
	}
	return Allocation{
		DailyMinutes: dailyMinutes,
		Focus:        focus,
		Improvement:  improvementAreas,
		Interests:    interests,
		Strengths:    strengths,
		Subjects:     subjects,
	}
}

// AssembleBalanced 各学科并发生成周期计划，再按天合并，每学科每天最多两个活动
func (a *Assembler) AssembleBalanced(ctx context.Context, profile model.StudentProfile, alloc Allocation, content map[string][]model.ContentItem, period model.LearningPeriod) *model.LearningPlan {
	days := period.Days()
	plans := make([]*model.LearningPlan, len(alloc.Subjects))

	g, gctx := errgroup.WithContext(ctx)
	for i, sa := range alloc.Subjects {
		g.Go(func() error {
			plans[i] = a.AssemblePeriod(gctx, profile, sa.Subject, content[sa.Subject], period)
			return nil
		})
	}
	_ = g.Wait()

	type slot struct {
		day     int
		subject int
	}
	taken := make(map[slot]int)
	byDay := make(map[int][]model.LearningActivity, days)
	for i, sa := range alloc.Subjects {
		capMinutes := max(5, sa.Minutes/2)
		for _, act := range plans[i].Activities {
			key := slot{act.Day, i}
			if taken[key] >= maxPerSubjectPerDay {
				continue
			}
			taken[key]++

			act.Title = sa.Subject + ": " + act.Title
			if act.DurationMinutes > capMinutes {
				act.DurationMinutes = capMinutes
			}
			act.Metadata["subject"] = sa.Subject
			byDay[act.Day] = append(byDay[act.Day], act)
		}
	}

	var activities []model.LearningActivity
	for day := 1; day <= days; day++ {
		for i := range byDay[day] {
			act := byDay[day][i]
			act.Order = i + 1
			activities = append(activities, act)
		}
	}

	name := strings.TrimSpace(profile.FullName)
	title := "Balanced Learning Plan - " + PeriodTitle(period)
	if name != "" {
		title = fmt.Sprintf("Balanced Learning Plan for %s - %s", name, PeriodTitle(period))
	}

	description := fmt.Sprintf("A personalized %s learning plan with %d minutes of daily balanced study across multiple subjects.",
		strings.ToLower(PeriodTitle(period)), alloc.DailyMinutes)

	start := a.now().UTC()
	end := start.AddDate(0, 0, days)
	return &model.LearningPlan{
		Title:          title,
		Description:    description,
		Subject:        balancedSubjectLabel,
		Topics:         append([]string(nil), alloc.Focus...),
		Activities:     activities,
		Status:         model.StatusNotStarted,
		LearningPeriod: period,
		DurationDays:   days,
		StartDate:      &start,
		EndDate:        &end,
		Metadata: map[string]any{
			"plan_type":         "balanced",
			"daily_minutes":     alloc.DailyMinutes,
			"focus_areas":       alloc.Focus,
			"interest_areas":    alloc.Interests,
			"strength_areas":    alloc.Strengths,
			"improvement_areas": alloc.Improvement,
			"allocation":        alloc.Subjects,
			"learning_period":   string(period),
			"period_days":       days,
		},
	}
}
