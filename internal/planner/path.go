package planner

import (
	"context"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/pkg/logger"
	"edu_copilot_backend/pkg/tracing"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPathWeeks   = 4
	maxPathWeeks       = 12
	weekendDay         = 6
	pathActivityMins   = 30
	pathWeekdayPerWeek = 5
)

var weekdays = map[string]int{
	"monday": 1, "tuesday": 2, "wednesday": 3, "thursday": 4,
	"friday": 5, "saturday": 6, "sunday": 7,
}

// flexDay 接受 1..7 或星期名
type flexDay struct {
	Value int
	Set   bool
}

func (f *flexDay) UnmarshalJSON(b []byte) error {
	var n flexInt
	if err := n.UnmarshalJSON(b); err == nil && n.Set {
		f.Value, f.Set = n.Value, true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]; ok {
			f.Value, f.Set = d, true
		}
	}
	return nil
}

type rawPathActivity struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	ContentID       flexString `json:"content_id"`
	Type            string     `json:"type"`
	DurationMinutes flexInt    `json:"duration_minutes"`
}

type rawPathDay struct {
	Day        flexDay           `json:"day"`
	Activities []rawPathActivity `json:"activities"`
}

type rawWeek struct {
	WeekNumber      flexInt          `json:"week_number"`
	Theme           string           `json:"theme"`
	Goal            string           `json:"goal"`
	Days            []rawPathDay     `json:"days"`
	WeekendActivity *rawPathActivity `json:"weekend_activity"`
	Skills          flexStrings      `json:"skills"`
	Assessment      string           `json:"assessment"`
}

type rawPath struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OverallGoal string    `json:"overall_goal"`
	Weeks       []rawWeek `json:"weeks"`
}

// WeekSummary 路径中每周的主题与目标，保存在计划 metadata 中
type WeekSummary struct {
	WeekNumber int      `json:"week_number"`
	Theme      string   `json:"theme"`
	Goal       string   `json:"goal"`
	Skills     []string `json:"skills,omitempty"`
	Assessment string   `json:"assessment,omitempty"`
}

// BuildLearningPath 生成按周组织的学习路径，并展开为按绝对天数排列的活动
func (a *Assembler) BuildLearningPath(ctx context.Context, profile model.StudentProfile, subject string, ranked []model.ContentItem, weeks int) *model.LearningPlan {
	if weeks <= 0 {
		weeks = defaultPathWeeks
	}
	if weeks > maxPathWeeks {
		weeks = maxPathWeeks
	}

	ctx, span := tracing.Tracer.Start(ctx, "planner.learning_path")
	defer span.End()

	var parsed rawPath
	raw, err := a.completer.Complete(ctx, PathSystemPrompt, PathPrompt(&profile, subject, ranked, weeks), true)
	if err == nil {
		var extracted bool
		extracted, err = decodeCompletion(raw, &parsed)
		if extracted {
			countRepair("extracted_json")
		}
	}
	if err != nil {
		span.RecordError(err)
		logger.Log.Warn("Learning path generation failed, synthesizing weeks",
			zap.String("subject", subject),
			zap.Error(err))
		countRepair("fallback")
		parsed = rawPath{}
	}
	return a.flattenPath(&parsed, subject, ranked, weeks)
}

func (a *Assembler) flattenPath(p *rawPath, subject string, ranked []model.ContentItem, weeks int) *model.LearningPlan {
	policy := a.ContentIDPolicy()
	byID := make(map[string]*model.ContentItem, len(ranked))
	for i := range ranked {
		if _, ok := byID[ranked[i].ID]; !ok {
			byID[ranked[i].ID] = &ranked[i]
		}
	}
	days := weeks * 7

	// 同一周号只保留第一次出现的内容
	byWeek := make(map[int]*rawWeek, weeks)
	for i := range p.Weeks {
		w := &p.Weeks[i]
		n := i + 1
		if w.WeekNumber.Set {
			n = w.WeekNumber.Value
		}
		if n < 1 || n > weeks {
			continue
		}
		if _, ok := byWeek[n]; !ok {
			byWeek[n] = w
		}
	}

	now := a.now().UTC()
	plan := &model.LearningPlan{
		Title:        strings.TrimSpace(p.Title),
		Description:  strings.TrimSpace(p.Description),
		Subject:      subject,
		Topics:       []string{subject},
		Status:       model.StatusNotStarted,
		DurationDays: days,
	}
	if plan.Title == "" {
		plan.Title = subject + " Learning Path"
	}
	if plan.Description == "" {
		plan.Description = "A learning path for " + subject
	}
	goal := strings.TrimSpace(p.OverallGoal)
	if goal == "" {
		goal = "Learn the fundamentals of " + subject
	}

	summaries := make([]WeekSummary, 0, weeks)
	substituted, nulled, synthesized := 0, 0, 0
	resolve := func(id string) *model.ContentItem {
		item, outcome := resolveContent(id, byID, ranked, policy)
		switch outcome {
		case "substituted":
			substituted++
		case "nulled":
			nulled++
		}
		return item
	}
	covered := make(map[int]bool, days)
	cursor := 0
	for n := 1; n <= weeks; n++ {
		w, ok := byWeek[n]
		if !ok || weekActivityCount(w) == 0 {
			synthesized++
			w = synthesizeWeek(subject, ranked, n, &cursor)
		}
		summaries = append(summaries, WeekSummary{
			WeekNumber: n,
			Theme:      w.Theme,
			Goal:       w.Goal,
			Skills:     []string(w.Skills),
			Assessment: w.Assessment,
		})

		order := make(map[int]int)
		add := func(pa rawPathActivity, day int) {
			if day < 1 || day > 7 {
				day = clampDay(day, 7)
			}
			abs := (n-1)*7 + day
			order[abs]++
			covered[abs] = true

			act := rawActivity{
				Title:           pa.Title,
				Description:     pa.Description,
				ContentID:       pa.ContentID,
				DurationMinutes: pa.DurationMinutes,
				Day:             flexInt{Value: abs, Set: true},
				Order:           flexInt{Value: order[abs], Set: true},
			}
			built := buildActivity(act, resolve(string(pa.ContentID)), subject)
			if !pa.DurationMinutes.Set || pa.DurationMinutes.Value <= 0 {
				built.DurationMinutes = pathActivityMins
			}
			built.Metadata["theme"] = w.Theme
			if pa.Type != "" {
				built.Metadata["activity_type"] = pa.Type
			}
			plan.Activities = append(plan.Activities, built)
		}

		for i, d := range w.Days {
			day := i + 1
			if d.Day.Set {
				day = d.Day.Value
			}
			for _, pa := range d.Activities {
				add(pa, day)
			}
		}
		if w.WeekendActivity != nil && strings.TrimSpace(w.WeekendActivity.Title) != "" {
			add(*w.WeekendActivity, weekendDay)
		}
	}
	if synthesized > 0 {
		countRepair("synthesized_weeks")
	}

	// 模型给出的周可能只安排了部分天，补齐每一天
	var missing []int
	for day := 1; day <= days; day++ {
		if covered[day] {
			continue
		}
		missing = append(missing, day)
		act := synthesize(subject, ranked, day)
		built := buildActivity(act, resolve(string(act.ContentID)), subject)
		built.Metadata["theme"] = summaries[(day-1)/7].Theme
		plan.Activities = append(plan.Activities, built)
	}
	if len(missing) > 0 {
		countRepair("missing_days")
		logger.Log.Info("Added path activities for uncovered days", zap.String("subject", subject), zap.Ints("days", missing))
	}
	if substituted > 0 {
		countRepair("content_substituted")
	}
	if nulled > 0 {
		countRepair("content_nulled")
	}

	SortActivities(plan.Activities)
	plan.Metadata = map[string]any{
		"plan_type":    "learning_path",
		"overall_goal": goal,
		"weeks":        summaries,
		"generated_at": now.Format(time.RFC3339),
	}
	return plan
}

func weekActivityCount(w *rawWeek) int {
	n := 0
	for _, d := range w.Days {
		n += len(d.Activities)
	}
	if w.WeekendActivity != nil {
		n++
	}
	return n
}

// synthesizeWeek 模型缺失的周：工作日各一个活动，依次取用 ranked
func synthesizeWeek(subject string, ranked []model.ContentItem, n int, cursor *int) *rawWeek {
	w := &rawWeek{
		WeekNumber: flexInt{Value: n, Set: true},
		Theme:      fmt.Sprintf("%s week %d", subject, n),
		Goal:       fmt.Sprintf("Continue building %s skills", subject),
	}
	for day := 1; day <= pathWeekdayPerWeek; day++ {
		pa := rawPathActivity{
			Title:       fmt.Sprintf("Week %d day %d: %s practice", n, day, subject),
			Description: fmt.Sprintf("Review and practice key %s concepts.", subject),
		}
		if len(ranked) > 0 {
			c := ranked[*cursor%len(ranked)]
			*cursor++
			pa.Title = c.Title
			pa.Description = "Study the material: " + c.Description
			pa.ContentID = flexString(c.ID)
			pa.Type = string(c.ContentType)
			if c.DurationMinutes > 0 {
				pa.DurationMinutes = flexInt{Value: c.DurationMinutes, Set: true}
			}
		}
		w.Days = append(w.Days, rawPathDay{
			Day:        flexDay{Value: day, Set: true},
			Activities: []rawPathActivity{pa},
		})
	}
	return w
}
