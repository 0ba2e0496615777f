package planner

import (
	"context"
	"edu_copilot_backend/internal/model"
	"testing"
)

const pathFixture = `{"title":"Master Fractions","overall_goal":"Add fractions","weeks":[
 {"week_number":1,"theme":"Basics","days":[
   {"day":"Monday","activities":[
     {"title":"Intro","content_id":"c1","duration_minutes":25},
     {"title":"Bogus","content_id":"nope"}]},
   {"day":"Wednesday","activities":[{"title":"Practice"}]}],
  "weekend_activity":{"title":"Weekend Review","duration_minutes":45},
  "skills":["equivalence"]}
]}`

func pathByTitle(plan *model.LearningPlan) map[string]model.LearningActivity {
	out := make(map[string]model.LearningActivity, len(plan.Activities))
	for _, act := range plan.Activities {
		out[act.Title] = act
	}
	return out
}

func TestBuildLearningPath(t *testing.T) {
	c := &fakeCompleter{reply: pathFixture}
	a := newTestAssembler(c, "substitute")
	ranked := rankedFixture()

	plan := a.BuildLearningPath(context.Background(), profileFixture(), "Mathematics", ranked, 2)
	if plan.Title != "Master Fractions" || plan.DurationDays != 14 {
		t.Fatalf("header: got title=%q days=%d", plan.Title, plan.DurationDays)
	}
	// 第一周 4 个模型活动 + 4 个补齐日，第二周 5 个合成活动 + 2 个补齐日
	if len(plan.Activities) != 15 {
		t.Fatalf("activities: want=15 got=%d", len(plan.Activities))
	}
	assertDayCoverage(t, plan, 14)
	assertContentInRanked(t, plan, ranked)

	byTitle := pathByTitle(plan)
	if got := byTitle["Intro"]; got.Day != 1 || contentID(got) != "c1" || got.DurationMinutes != 25 {
		t.Fatalf("intro: got=%+v", got)
	}
	if got := byTitle["Bogus"]; contentID(got) != "c1" || got.Order != 2 || got.DurationMinutes != 30 {
		t.Fatalf("unknown content substituted: got=%+v", got)
	}
	if got := byTitle["Practice"]; got.Day != 3 || contentID(got) != "c1" {
		t.Fatalf("practice: got day=%d content=%s", got.Day, contentID(got))
	}
	if got := byTitle["Weekend Review"]; got.Day != 6 || got.DurationMinutes != 45 {
		t.Fatalf("weekend: got=%+v", got)
	}
	if got, ok := byTitle["Day 4: Title c2"]; !ok || got.Day != 4 || contentID(got) != "c2" || got.DurationMinutes != 15 {
		t.Fatalf("filled day 4: got=%+v", got)
	}
	if got, ok := byTitle["Day 7: Title c2"]; !ok || got.Metadata["theme"] != "Basics" {
		t.Fatalf("filled day 7: got=%+v", got)
	}

	week2 := 0
	for _, act := range plan.Activities {
		if act.Day >= 8 {
			week2++
			if act.Metadata["week"] != 2 {
				t.Fatalf("week 2 activity: got day=%d week=%v", act.Day, act.Metadata["week"])
			}
		}
	}
	if week2 != 7 {
		t.Fatalf("week 2: want=7 activities got=%d", week2)
	}
	if plan.Metadata["overall_goal"] != "Add fractions" {
		t.Fatalf("goal: got=%v", plan.Metadata["overall_goal"])
	}
}

func TestBuildLearningPathNullPolicy(t *testing.T) {
	c := &fakeCompleter{reply: pathFixture}
	a := newTestAssembler(c, "null")

	plan := a.BuildLearningPath(context.Background(), profileFixture(), "Mathematics", rankedFixture(), 1)
	assertDayCoverage(t, plan, 7)

	byTitle := pathByTitle(plan)
	tests := []struct {
		title string
		want  string
	}{
		{"Intro", "c1"},
		{"Bogus", "<nil>"},
		{"Practice", "<nil>"},
		{"Day 2: Title c3", "c3"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, ok := byTitle[tt.title]
			if !ok {
				t.Fatalf("activity %q missing", tt.title)
			}
			if contentID(got) != tt.want {
				t.Fatalf("content: want=%s got=%s", tt.want, contentID(got))
			}
		})
	}
}

func TestBuildLearningPathFallback(t *testing.T) {
	c := &fakeCompleter{reply: "no json here"}
	a := newTestAssembler(c, "substitute")

	plan := a.BuildLearningPath(context.Background(), profileFixture(), "Art", nil, 0)
	if plan.DurationDays != 28 || len(plan.Activities) != 28 {
		t.Fatalf("fallback path: got days=%d acts=%d", plan.DurationDays, len(plan.Activities))
	}
	assertDayCoverage(t, plan, 28)
	for _, act := range plan.Activities {
		if act.ContentID != nil {
			t.Fatalf("content_id: want nil got=%s", *act.ContentID)
		}
	}
}
