package ranking

import (
	"edu_copilot_backend/internal/model"
	"fmt"
	"math"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := fixedNow.AddDate(0, 0, -n)
	return &t
}

func newTestRanker() *Ranker {
	r := NewRanker(nil)
	r.Now = func() time.Time { return fixedNow }
	return r
}

func TestScoreBreakdown(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name    string
		profile model.StudentProfile
		item    model.ContentItem
		want    float64
	}{
		{
			name: "elementary visual learner full match",
			profile: model.StudentProfile{
				GradeLevel:         5,
				LearningStyle:      model.LearningStyleVisual,
				SubjectsOfInterest: []string{"Mathematics"},
			},
			item: model.ContentItem{
				ContentType:     model.ContentTypeVideo,
				Subject:         "Mathematics",
				DifficultyLevel: model.DifficultyBeginner,
				GradeLevel:      []int{5},
				Topics:          []string{"Fractions"},
				DurationMinutes: 10,
				CreatedAt:       daysAgo(10),
			},
			want: 1.0 + 0.4 + 0.3 + 0.3 + 0.1 + 0.2 + 0.3,
		},
		{
			name: "high school reader with topic overlap and adjacent grade",
			profile: model.StudentProfile{
				GradeLevel:         9,
				LearningStyle:      model.LearningStyleReadingWriting,
				SubjectsOfInterest: []string{"Science"},
			},
			item: model.ContentItem{
				ContentType:     model.ContentTypeArticle,
				Subject:         "science",
				DifficultyLevel: model.DifficultyAdvanced,
				GradeLevel:      []int{10},
				Topics:          []string{"Science Fair Projects"},
				DurationMinutes: 60,
				CreatedAt:       daysAgo(400),
			},
			want: 1.0 + 0.4 + 0.1 + 0.3 + 0.2 + 0.3,
		},
		{
			name:    "senior with beginner content gets penalty",
			profile: model.StudentProfile{GradeLevel: 11, LearningStyle: model.LearningStyleVisual},
			item: model.ContentItem{
				ContentType:     model.ContentTypeWorksheet,
				Subject:         "History",
				DifficultyLevel: model.DifficultyBeginner,
				DurationMinutes: 5,
			},
			want: 1.0 - 0.1,
		},
		{
			name:    "sixth grader with long advanced quiz",
			profile: model.StudentProfile{GradeLevel: 6, LearningStyle: model.LearningStyleAuditory},
			item: model.ContentItem{
				ContentType:     model.ContentTypeQuiz,
				Subject:         "English",
				DifficultyLevel: model.DifficultyAdvanced,
				DurationMinutes: 50,
			},
			want: 1.0 - 0.1 - 0.1,
		},
		{
			name:    "unknown grade only scores grade independent factors",
			profile: model.StudentProfile{LearningStyle: model.LearningStyleKinesthetic},
			item: model.ContentItem{
				ContentType:     model.ContentTypeActivity,
				DifficultyLevel: model.DifficultyAdvanced,
				GradeLevel:      []int{1},
				DurationMinutes: 10,
			},
			want: 1.0 + 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(&tt.item, &tt.profile, w, fixedNow)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("score: want=%.2f got=%.2f (%+v)", tt.want, got, ScoreBreakdown(&tt.item, &tt.profile, w, fixedNow))
			}
		})
	}
}

func mixedItems() []model.ContentItem {
	types := []model.ContentType{
		model.ContentTypeVideo, model.ContentTypeArticle, model.ContentTypeQuiz,
		model.ContentTypeVideo, model.ContentTypeLesson, model.ContentTypeInteractive,
		model.ContentTypeWorksheet, model.ContentTypeActivity, model.ContentTypeVideo,
		model.ContentTypeArticle, model.ContentTypeAudio, model.ContentTypeVideo,
	}
	items := make([]model.ContentItem, len(types))
	for i, ct := range types {
		items[i] = model.ContentItem{
			ID:              fmt.Sprintf("c%d", i),
			ContentType:     ct,
			Subject:         "Mathematics",
			DifficultyLevel: model.DifficultyBeginner,
			GradeLevel:      []int{4 + i%3},
			DurationMinutes: 5 + i*3,
		}
	}
	return items
}

func TestRankIsDeterministic(t *testing.T) {
	r := newTestRanker()
	profile := &model.StudentProfile{GradeLevel: 5, LearningStyle: model.LearningStyleVisual, SubjectsOfInterest: []string{"Mathematics"}}
	items := mixedItems()

	first := r.Rank(items, profile, 10)
	second := r.Rank(items, profile, 10)
	if len(first) != len(second) {
		t.Fatalf("len: want=%d got=%d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("position %d: want=%s got=%s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestRankDiversityScenario(t *testing.T) {
	r := newTestRanker()
	profile := &model.StudentProfile{GradeLevel: 5, LearningStyle: model.LearningStyleVisual}

	// 6 个视频全部高于 2 篇文章
	var items []model.ContentItem
	for i := 0; i < 6; i++ {
		items = append(items, model.ContentItem{ID: fmt.Sprintf("v%d", i), ContentType: model.ContentTypeVideo, GradeLevel: []int{5}})
	}
	for i := 0; i < 2; i++ {
		items = append(items, model.ContentItem{ID: fmt.Sprintf("a%d", i), ContentType: model.ContentTypeArticle})
	}

	got := r.Rank(items, profile, 5)
	if len(got) != 5 {
		t.Fatalf("len: want=5 got=%d", len(got))
	}
	seen := map[model.ContentType]bool{}
	for _, it := range got {
		seen[it.ContentType] = true
	}
	if !seen[model.ContentTypeVideo] || !seen[model.ContentTypeArticle] {
		t.Fatalf("types: want video and article got=%v", seen)
	}
	if got[0].ID != "v0" || got[1].ID != "a0" {
		t.Fatalf("diversity order: want v0,a0 got %s,%s", got[0].ID, got[1].ID)
	}
}

func TestRankCountNeverBelowMin(t *testing.T) {
	r := newTestRanker()
	profile := &model.StudentProfile{GradeLevel: 7, LearningStyle: model.LearningStyleMixed}
	items := mixedItems()
	// 重复 id 只计一次
	items = append(items, items[0], items[3])
	dedup := len(items) - 2

	for k := 1; k <= 15; k++ {
		got := r.Rank(items, profile, k)
		want := k
		if dedup < want {
			want = dedup
		}
		if len(got) != want {
			t.Fatalf("k=%d: want=%d got=%d", k, want, len(got))
		}
		ids := map[string]bool{}
		for _, it := range got {
			if ids[it.ID] {
				t.Fatalf("k=%d: duplicate id %s", k, it.ID)
			}
			ids[it.ID] = true
		}
	}
}

func TestRankDefaultK(t *testing.T) {
	r := newTestRanker()
	got := r.Rank(mixedItems(), &model.StudentProfile{GradeLevel: 3}, 0)
	if len(got) != 10 {
		t.Fatalf("default k: want=10 got=%d", len(got))
	}
}

func TestSortByScoreIsStable(t *testing.T) {
	scored := []Scored{
		{Item: model.ContentItem{ID: "a"}, Score: 1},
		{Item: model.ContentItem{ID: "b"}, Score: 2},
		{Item: model.ContentItem{ID: "c"}, Score: 1},
		{Item: model.ContentItem{ID: "d"}, Score: 2},
	}
	SortByScore(scored)
	want := []string{"b", "d", "a", "c"}
	for i, id := range want {
		if scored[i].Item.ID != id {
			t.Fatalf("position %d: want=%s got=%s", i, id, scored[i].Item.ID)
		}
	}
}

func TestDiversifyCapsTypes(t *testing.T) {
	var sorted []Scored
	types := []model.ContentType{
		model.ContentTypeVideo, model.ContentTypeVideo, model.ContentTypeArticle, model.ContentTypeQuiz,
		model.ContentTypeLesson, model.ContentTypeAudio, model.ContentTypeActivity, model.ContentTypeWorksheet,
	}
	for i, ct := range types {
		sorted = append(sorted, Scored{Item: model.ContentItem{ID: fmt.Sprintf("i%d", i), ContentType: ct}, Score: float64(10 - i)})
	}
	got := Diversify(sorted, 6, 5)
	// 前 5 条是 5 种不同类型，第 6 条按分数回填
	wantIDs := []string{"i0", "i2", "i3", "i4", "i5", "i1"}
	for i, id := range wantIDs {
		if got[i].Item.ID != id {
			t.Fatalf("position %d: want=%s got=%s", i, id, got[i].Item.ID)
		}
	}
}

func TestGroupByLearningStyle(t *testing.T) {
	items := mixedItems()
	groups := GroupByLearningStyle(items, model.LearningStyleVisual, 8)

	// visual 优先 video/interactive，每类最多 8/2+1=5 条
	if got := len(groups["video"]); got != 4 {
		t.Fatalf("video: want=4 got=%d", got)
	}
	if got := len(groups["interactive"]); got != 1 {
		t.Fatalf("interactive: want=1 got=%d", got)
	}
	if got := len(groups["other"]); got != 2 {
		t.Fatalf("other: want=2 got=%d", got)
	}
	if _, ok := groups["article"]; ok {
		t.Fatalf("article should be grouped under other")
	}
}

func TestSetWeightsChangesScores(t *testing.T) {
	r := newTestRanker()
	r.SetWeights(&Weights{StyleMatch: 2})
	if got := r.Weights().StyleMatch; got != 2 {
		t.Fatalf("style match: want=2 got=%v", got)
	}
	if got := r.Weights().GradeExact; got != 0.3 {
		t.Fatalf("grade exact keeps default: want=0.3 got=%v", got)
	}
}
