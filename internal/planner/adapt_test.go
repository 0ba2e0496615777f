package planner

import (
	"edu_copilot_backend/internal/model"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func adaptPlanFixture() *model.LearningPlan {
	return &model.LearningPlan{
		UUIDBase:     model.UUIDBase{ID: "plan-1"},
		Subject:      "Mathematics",
		DurationDays: 7,
		Activities: []model.LearningActivity{
			{Title: "Done", ContentID: strPtr("c1"), Day: 1, Order: 1, DurationMinutes: 10, Status: model.StatusCompleted},
			{Title: "Next", ContentID: strPtr("c2"), Day: 2, Order: 1, DurationMinutes: 15, Status: model.StatusNotStarted},
			{Title: "Hard", ContentID: strPtr("c3"), Day: 3, Order: 2, DurationMinutes: 25, Status: model.StatusNotStarted},
		},
	}
}

func adaptPool() []model.ContentItem {
	return []model.ContentItem{
		{ID: "c1", Title: "Counting", DifficultyLevel: model.DifficultyBeginner},
		{ID: "c2", Title: "Fractions", DifficultyLevel: model.DifficultyIntermediate},
		{ID: "b2", Title: "Halves", Description: "Split shapes", DifficultyLevel: model.DifficultyBeginner, URL: "https://example.org/b2"},
		{ID: "b3", Title: "Quarters", DifficultyLevel: model.DifficultyBeginner},
		{ID: "x1", Title: "Ratios", DifficultyLevel: model.DifficultyAdvanced},
		{ID: "x2", Title: "Proportions", DifficultyLevel: model.DifficultyAdvanced},
		{ID: "x3", Title: "Algebra", DifficultyLevel: model.DifficultyAdvanced},
	}
}

func TestAdaptEasier(t *testing.T) {
	plan := adaptPlanFixture()
	res := AdaptForPerformance(plan, model.PerformanceMetrics{AvgQuizScore: floatPtr(0.5)}, adaptPool())

	if res.Adaptation != AdaptationEasier || res.Changed != 2 {
		t.Fatalf("result: got=%+v", res)
	}
	next := plan.Activities[1]
	if next.Title != "[EASIER] Halves" || contentID(next) != "b2" || next.ContentURL != "https://example.org/b2" {
		t.Fatalf("swapped activity: got=%+v", next)
	}
	if !strings.HasPrefix(next.Description, "This activity has been adjusted to help you build foundational skills: ") {
		t.Fatalf("description: got=%q", next.Description)
	}
	if next.Day != 2 || next.Order != 1 || next.DurationMinutes != 15 {
		t.Fatalf("schedule must be kept: got day=%d order=%d duration=%d", next.Day, next.Order, next.DurationMinutes)
	}
	if contentID(plan.Activities[2]) != "b3" {
		t.Fatalf("second swap: got=%s", contentID(plan.Activities[2]))
	}
	if plan.Activities[0].Title != "Done" {
		t.Fatalf("completed activities must not change")
	}
}

func TestAdaptHarder(t *testing.T) {
	plan := adaptPlanFixture()
	perf := model.PerformanceMetrics{AvgQuizScore: floatPtr(0.9), WritingQuality: floatPtr(85)}
	res := AdaptForPerformance(plan, perf, adaptPool())

	if res.Adaptation != AdaptationHarder || res.Changed != 2 {
		t.Fatalf("result: got=%+v", res)
	}
	if len(plan.Activities) != 5 {
		t.Fatalf("activities: want=5 got=%d", len(plan.Activities))
	}
	for i, want := range []string{"[CHALLENGE] Ratios", "[CHALLENGE] Proportions"} {
		act := plan.Activities[3+i]
		if act.Title != want || act.Day != 7 || act.Order != 3+i || act.DurationMinutes != 30 || act.PlanID != "plan-1" {
			t.Fatalf("challenge %d: got=%+v", i, act)
		}
		if act.ID == "" {
			t.Fatalf("challenge %d: id not assigned", i)
		}
	}
	if plan.ProgressPercentage != 20 || plan.Status != model.StatusInProgress {
		t.Fatalf("progress: got=%.2f status=%s", plan.ProgressPercentage, plan.Status)
	}
}

func TestAdaptNoChange(t *testing.T) {
	tests := []struct {
		name string
		plan *model.LearningPlan
		perf model.PerformanceMetrics
	}{
		{
			name: "nothing completed",
			plan: &model.LearningPlan{Activities: []model.LearningActivity{{Status: model.StatusNotStarted}}},
			perf: model.PerformanceMetrics{AvgQuizScore: floatPtr(0.1)},
		},
		{
			name: "default metrics",
			plan: adaptPlanFixture(),
		},
		{
			name: "high quiz but default writing",
			plan: adaptPlanFixture(),
			perf: model.PerformanceMetrics{AvgQuizScore: floatPtr(0.95)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(tt.plan.Activities)
			res := AdaptForPerformance(tt.plan, tt.perf, adaptPool())
			if res.Adaptation != AdaptationNone || len(tt.plan.Activities) != before {
				t.Fatalf("want no adaptation got=%+v", res)
			}
		})
	}
}

func TestComputeProgress(t *testing.T) {
	acts := func(statuses ...model.ActivityStatus) []model.LearningActivity {
		out := make([]model.LearningActivity, 0, len(statuses))
		for _, s := range statuses {
			out = append(out, model.LearningActivity{Status: s})
		}
		return out
	}
	tests := []struct {
		name     string
		acts     []model.LearningActivity
		progress float64
		status   model.ActivityStatus
	}{
		{"empty", nil, 0, model.StatusNotStarted},
		{"none completed", acts(model.StatusNotStarted, model.StatusInProgress), 0, model.StatusNotStarted},
		{"partial", acts(model.StatusCompleted, model.StatusNotStarted, model.StatusNotStarted), 33.33, model.StatusInProgress},
		{"all completed", acts(model.StatusCompleted, model.StatusCompleted), 100, model.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress, status := ComputeProgress(tt.acts)
			if progress != tt.progress || status != tt.status {
				t.Fatalf("want=(%.2f,%s) got=(%.2f,%s)", tt.progress, tt.status, progress, status)
			}
		})
	}
}
