package service

import (
	"context"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/util"
	"reflect"
	"testing"
)

func TestProfileServiceLifecycle(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{})

	_, err := env.profiles.Get(7)
	wantErr(t, err, util.ErrProfileNotFound)

	p := env.seedProfile(t, 7)
	if p.ID == "" || p.LearningStyle != model.LearningStyleVisual {
		t.Fatalf("created profile: got=%+v", p)
	}
	if doc := env.index.last(); doc == nil || doc["id"] != p.ID || doc["user_id"] != "7" {
		t.Fatalf("mirrored profile: got=%v", doc)
	}

	_, err = env.profiles.Create(7, ProfileInput{})
	wantErr(t, err, util.ErrProfileExists)

	style := "not-a-style"
	updated, err := env.profiles.Update(7, ProfileInput{
		LearningStyle: &style,
		Strengths:     []string{" Reading ", "reading", "", "Art"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LearningStyle != model.LearningStyleMixed {
		t.Fatalf("style: want=%s got=%s", model.LearningStyleMixed, updated.LearningStyle)
	}
	if want := []string{"Reading", "Art"}; !reflect.DeepEqual(updated.Strengths, want) {
		t.Fatalf("strengths: want=%v got=%v", want, updated.Strengths)
	}
	if updated.GradeLevel != 5 || updated.FullName != "Sam Lee" {
		t.Fatalf("untouched fields changed: got=%+v", updated)
	}

	snap, err := env.profiles.Snapshot(7)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	snap.Strengths[0] = "mutated"
	again, _ := env.profiles.Get(7)
	if again.Strengths[0] != "Reading" {
		t.Fatalf("snapshot must not alias stored profile")
	}
}

func TestRecommendationService(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{})
	env.seedProfile(t, 3)
	ctx := context.Background()

	_, err := env.recs.Recommend(ctx, 99, "Mathematics", 5)
	wantErr(t, err, util.ErrProfileNotFound)

	items, err := env.recs.Recommend(ctx, 3, "Mathematics", 5)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(items) == 0 || len(items) > 5 {
		t.Fatalf("recommend size: want 1..5 got=%d", len(items))
	}
	seen := map[string]bool{}
	for _, it := range items {
		if seen[it.ID] {
			t.Fatalf("duplicate item %q", it.ID)
		}
		seen[it.ID] = true
	}

	item, err := env.recs.Content(ctx, "a2")
	if err != nil || item.ID != "a2" || item.DifficultyLevel != model.DifficultyAdvanced {
		t.Fatalf("content: got=%+v err=%v", item, err)
	}
	_, err = env.recs.Content(ctx, "missing")
	wantErr(t, err, util.ErrContentNotFound)

	groups, err := env.recs.ByStyle(ctx, 3, 4)
	if err != nil {
		t.Fatalf("by style: %v", err)
	}
	if len(groups) == 0 {
		t.Fatalf("by style: want groups")
	}
	for style, list := range groups {
		if len(list) > 4 {
			t.Fatalf("group %s: want <=4 got=%d", style, len(list))
		}
	}
}

func TestRecommendationWarmup(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{})
	env.seedProfile(t, 1)
	env.seedProfile(t, 2)

	warmed, err := env.recs.Warmup(context.Background(), env.profiles.Repo, nil)
	if err != nil {
		t.Fatalf("warmup: %v", err)
	}
	if warmed != 2 {
		t.Fatalf("warmed: want=2 got=%d", warmed)
	}

	warmed, err = env.recs.Warmup(context.Background(), env.profiles.Repo, []string{"Mathematics", "Science"})
	if err != nil {
		t.Fatalf("warmup subjects: %v", err)
	}
	if warmed != 4 {
		t.Fatalf("warmed: want=4 got=%d", warmed)
	}
}
