package planner

import (
	"context"
	"edu_copilot_backend/internal/model"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, user)
	return f.reply, f.err
}

var fixedNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestAssembler(c Completer, policy string) *Assembler {
	a := NewAssembler(c, policy)
	a.Now = func() time.Time { return fixedNow }
	return a
}

func rankedFixture() []model.ContentItem {
	return []model.ContentItem{
		{ID: "c1", Title: "Title c1", URL: "https://example.org/c1", ContentType: model.ContentTypeVideo, DifficultyLevel: model.DifficultyBeginner, DurationMinutes: 10},
		{ID: "c2", Title: "Title c2", URL: "https://example.org/c2", ContentType: model.ContentTypeArticle, DifficultyLevel: model.DifficultyIntermediate, DurationMinutes: 15},
		{ID: "c3", Title: "Title c3", URL: "https://example.org/c3", ContentType: model.ContentTypeQuiz, DifficultyLevel: model.DifficultyAdvanced},
	}
}

func profileFixture() model.StudentProfile {
	return model.StudentProfile{
		FullName:      "Sam Lee",
		GradeLevel:    5,
		LearningStyle: model.LearningStyleVisual,
	}
}

func assertDayCoverage(t *testing.T, plan *model.LearningPlan, days int) {
	t.Helper()
	covered := make(map[int]bool)
	for _, a := range plan.Activities {
		if a.Day < 1 || a.Day > days {
			t.Fatalf("activity %q: day %d outside [1,%d]", a.Title, a.Day, days)
		}
		covered[a.Day] = true
	}
	for d := 1; d <= days; d++ {
		if !covered[d] {
			t.Fatalf("day %d has no activity", d)
		}
	}
}

func assertContentInRanked(t *testing.T, plan *model.LearningPlan, ranked []model.ContentItem) {
	t.Helper()
	ids := make(map[string]bool)
	for _, c := range ranked {
		ids[c.ID] = true
	}
	for _, a := range plan.Activities {
		if a.ContentID != nil && !ids[*a.ContentID] {
			t.Fatalf("activity %q references unknown content %s", a.Title, *a.ContentID)
		}
	}
}

func contentID(a model.LearningActivity) string {
	if a.ContentID == nil {
		return "<nil>"
	}
	return *a.ContentID
}

const repairFixture = `{"title":"Fractions Week","topics":["fractions"],"activities":[
 {"title":"Watch","content_id":"c2","day":1,"order":1,"duration_minutes":15},
 {"title":"Unknown","content_id":"zzz","day":"2","duration_minutes":0},
 {"title":"Late","content_id":"c3","day":9},
 {"title":"No day","content_id":"c1"}
]}`

func TestFromCompletionRepairsPlan(t *testing.T) {
	a := newTestAssembler(nil, "substitute")
	ranked := rankedFixture()

	plan := a.FromCompletion(repairFixture, "Mathematics", ranked, 7)
	if plan.Title != "Fractions Week" || plan.Subject != "Mathematics" {
		t.Fatalf("header: got title=%q subject=%q", plan.Title, plan.Subject)
	}
	if len(plan.Activities) != 8 {
		t.Fatalf("activities: want=8 got=%d", len(plan.Activities))
	}
	assertDayCoverage(t, plan, 7)
	assertContentInRanked(t, plan, ranked)

	byTitle := make(map[string]model.LearningActivity)
	for _, act := range plan.Activities {
		byTitle[act.Title] = act
		if act.Status != model.StatusNotStarted {
			t.Fatalf("status: want=not_started got=%s", act.Status)
		}
		if act.Metadata["week"] != 1 {
			t.Fatalf("week metadata: got=%v", act.Metadata["week"])
		}
	}
	if got := byTitle["Unknown"]; contentID(got) != "c1" || got.ContentURL != "https://example.org/c1" || got.DurationMinutes != 20 || got.Day != 2 {
		t.Fatalf("unknown content: got=%+v", got)
	}
	if got := byTitle["Late"]; got.Day != 7 {
		t.Fatalf("clamped day: want=7 got=%d", got.Day)
	}
	if got := byTitle["No day"]; got.Day != 1 || got.Order != 1 {
		t.Fatalf("missing day: got day=%d order=%d", got.Day, got.Order)
	}
	if got, ok := byTitle["Day 4: Title c2"]; !ok || contentID(got) != "c2" || got.DurationMinutes != 15 {
		t.Fatalf("synthesized day 4: got=%+v", got)
	}
	if got := byTitle["Day 5: Title c3"]; got.DurationMinutes != 20 {
		t.Fatalf("synthesized duration fallback: want=20 got=%d", got.DurationMinutes)
	}

	if plan.Activities[0].Title != "Watch" || plan.Activities[1].Title != "No day" {
		t.Fatalf("sort order: got %q, %q", plan.Activities[0].Title, plan.Activities[1].Title)
	}
}

func TestFromCompletionNullPolicy(t *testing.T) {
	a := newTestAssembler(nil, "null")
	plan := a.FromCompletion(repairFixture, "Mathematics", rankedFixture(), 7)

	for _, act := range plan.Activities {
		if act.Title == "Unknown" {
			if act.ContentID != nil || act.ContentURL != "" {
				t.Fatalf("null policy: want nil content got=%s url=%q", contentID(act), act.ContentURL)
			}
			return
		}
	}
	t.Fatalf("activity Unknown missing")
}

func TestContentIDPolicyReload(t *testing.T) {
	a := newTestAssembler(nil, "")
	if a.ContentIDPolicy() != PolicySubstitute {
		t.Fatalf("default policy: got=%s", a.ContentIDPolicy())
	}
	a.SetContentIDPolicy("NULL")
	if a.ContentIDPolicy() != PolicyNull {
		t.Fatalf("reloaded policy: got=%s", a.ContentIDPolicy())
	}
}

func TestFromCompletionExtractsWrappedJSON(t *testing.T) {
	a := newTestAssembler(nil, "substitute")
	raw := "Sure! Here is the plan:\n```json\n{\"title\":\"Wrapped\",\"activities\":[{\"title\":\"A\",\"content_id\":\"c1\",\"day\":1}]}\n```\nEnjoy."

	plan := a.FromCompletion(raw, "Mathematics", rankedFixture(), 3)
	if plan.Title != "Wrapped" {
		t.Fatalf("title: want=Wrapped got=%q", plan.Title)
	}
	if plan.Metadata["generated_by"] != "llm" {
		t.Fatalf("source: got=%v", plan.Metadata["generated_by"])
	}
	assertDayCoverage(t, plan, 3)
}

func TestFromCompletionGarbageFallsBack(t *testing.T) {
	a := newTestAssembler(nil, "substitute")
	plan := a.FromCompletion("I cannot help with that.", "Science", rankedFixture(), 4)

	if plan.Title != "Learning Plan for Science" || plan.Metadata["generated_by"] != "fallback" {
		t.Fatalf("fallback header: got title=%q meta=%v", plan.Title, plan.Metadata)
	}
	if len(plan.Activities) != 4 {
		t.Fatalf("activities: want=4 got=%d", len(plan.Activities))
	}
	want := []string{"c1", "c2", "c3", "c1"}
	for i, act := range plan.Activities {
		if act.Day != i+1 || contentID(act) != want[i] {
			t.Fatalf("day %d: want content %s got day=%d content=%s", i+1, want[i], act.Day, contentID(act))
		}
	}
	if len(plan.Topics) != 1 || plan.Topics[0] != "Science" {
		t.Fatalf("topics: got=%v", plan.Topics)
	}
}

func TestFromCompletionKeepsMistypedFields(t *testing.T) {
	a := newTestAssembler(nil, "substitute")

	tests := []struct {
		name   string
		raw    string
		source string
	}{
		{"numeric title", `{"title":5,"activities":[{"title":"Keep","content_id":"c2","day":1},{"title":{"x":1},"content_id":"c3","day":2}]}`, "llm"},
		{"wrapped", "Plan: {\"title\":[\"x\"],\"activities\":[{\"title\":\"Keep\",\"content_id\":\"c2\",\"day\":1},{\"title\":7,\"content_id\":\"c3\",\"day\":2}]} done", "llm"},
		{"top-level array", `[{"title":"Keep"}]`, "llm"},
		{"bare string", `"just text"`, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := a.FromCompletion(tt.raw, "Mathematics", rankedFixture(), 2)
			if plan.Metadata["generated_by"] != tt.source {
				t.Fatalf("source: want=%s got=%v", tt.source, plan.Metadata["generated_by"])
			}
			assertDayCoverage(t, plan, 2)
			if tt.source != "llm" || tt.name == "top-level array" {
				return
			}
			if plan.Title != "Learning Plan for Mathematics" {
				t.Fatalf("title: want default got=%q", plan.Title)
			}
			if len(plan.Activities) != 2 {
				t.Fatalf("activities: want=2 got=%d", len(plan.Activities))
			}
			if got := plan.Activities[0]; got.Title != "Keep" || contentID(got) != "c2" {
				t.Fatalf("day 1: got title=%q content=%s", got.Title, contentID(got))
			}
			if got := plan.Activities[1]; got.Day != 2 || got.Title != "Title c3" || contentID(got) != "c3" {
				t.Fatalf("day 2: got day=%d title=%q content=%s", got.Day, got.Title, contentID(got))
			}
		})
	}
}

func TestAssembleWithoutContent(t *testing.T) {
	tests := []struct {
		name string
		c    *fakeCompleter
	}{
		{"empty object", &fakeCompleter{reply: "{}"}},
		{"completion error", &fakeCompleter{err: errors.New("deployment not found")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssembler(tt.c, "substitute")
			plan := a.Assemble(context.Background(), profileFixture(), "History", nil, 5)

			if len(plan.Activities) != 5 {
				t.Fatalf("activities: want=5 got=%d", len(plan.Activities))
			}
			assertDayCoverage(t, plan, 5)
			for _, act := range plan.Activities {
				if act.ContentID != nil {
					t.Fatalf("content_id: want nil got=%s", *act.ContentID)
				}
			}
			if tt.c.calls != 1 {
				t.Fatalf("completer calls: want=1 got=%d", tt.c.calls)
			}
		})
	}
}

func TestAssembleWeeklyForcesSevenDays(t *testing.T) {
	c := &fakeCompleter{reply: "{}"}
	a := newTestAssembler(c, "substitute")

	plan := a.AssembleWeekly(context.Background(), profileFixture(), "Mathematics", rankedFixture())
	if plan.DurationDays != 7 {
		t.Fatalf("days: want=7 got=%d", plan.DurationDays)
	}
	assertDayCoverage(t, plan, 7)
	if !strings.Contains(c.prompts[0], "LEARNING PERIOD DURATION: 7 days (One Week)") {
		t.Fatalf("prompt does not describe a weekly plan")
	}
	if !strings.Contains(c.prompts[0], "- ID: c2") {
		t.Fatalf("prompt does not list resources")
	}
}

func weekReply() string {
	var acts []string
	for d := 1; d <= 7; d++ {
		acts = append(acts, fmt.Sprintf(`{"title":"Day %d work","content_id":"c%d","day":%d,"order":1,"duration_minutes":25}`, d, d%3+1, d))
	}
	return `{"title":"Week","topics":["fractions","decimals"],"activities":[` + strings.Join(acts, ",") + `]}`
}

func TestAssemblePeriodMultiWeek(t *testing.T) {
	c := &fakeCompleter{reply: weekReply()}
	a := newTestAssembler(c, "substitute")

	plan := a.AssemblePeriod(context.Background(), profileFixture(), "Mathematics", rankedFixture(), model.PeriodOneMonth)
	if c.calls != 5 {
		t.Fatalf("completer calls: want=5 got=%d", c.calls)
	}
	if plan.DurationDays != 30 || len(plan.Activities) != 30 {
		t.Fatalf("plan: want 30 days and 30 activities got days=%d acts=%d", plan.DurationDays, len(plan.Activities))
	}
	assertDayCoverage(t, plan, 30)
	last := plan.Activities[len(plan.Activities)-1]
	if last.Day != 30 || last.Metadata["week"] != 5 {
		t.Fatalf("last activity: got day=%d week=%v", last.Day, last.Metadata["week"])
	}
	if plan.Title != "Mathematics Learning Plan for One Month" {
		t.Fatalf("title: got=%q", plan.Title)
	}
	if plan.EndDate == nil || !plan.EndDate.Equal(fixedNow.AddDate(0, 0, 30)) {
		t.Fatalf("end date: got=%v", plan.EndDate)
	}
	if len(plan.Topics) != 2 {
		t.Fatalf("topics must be merged without duplicates: got=%v", plan.Topics)
	}
}

func TestLearningPeriodDays(t *testing.T) {
	tests := map[string]int{
		"one_week":    7,
		"two_weeks":   14,
		"one_month":   30,
		"two_months":  60,
		"school_term": 90,
		"fortnight":   30,
		"":            30,
	}
	for in, want := range tests {
		if got := model.ParseLearningPeriod(in).Days(); got != want {
			t.Fatalf("%q: want=%d got=%d", in, want, got)
		}
	}
	if got := PeriodTitle(model.PeriodSchoolTerm); got != "School Term" {
		t.Fatalf("period title: got=%q", got)
	}
}
