package service

import (
	"context"
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/planner"
	"edu_copilot_backend/internal/ranking"
	"edu_copilot_backend/internal/repository"
	"edu_copilot_backend/internal/retrieval"
	"edu_copilot_backend/internal/search"
	"edu_copilot_backend/pkg/database"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeSearcher 每次检索都返回同一批文档
type fakeSearcher struct {
	docs []search.Document
}

func (f *fakeSearcher) Search(ctx context.Context, req search.Request) ([]search.Document, error) {
	return f.docs, nil
}

func (f *fakeSearcher) Get(ctx context.Context, key string) (search.Document, error) {
	for _, d := range f.docs {
		if d["id"] == key {
			return d, nil
		}
	}
	return nil, search.ErrNotFound
}

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	return f.reply, f.err
}

type fakeIndexer struct {
	mu   sync.Mutex
	docs []search.Document
	err  error
}

func (f *fakeIndexer) MergeOrUpload(ctx context.Context, docs []search.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, docs...)
	return f.err
}

func (f *fakeIndexer) last() search.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.docs) == 0 {
		return nil
	}
	return f.docs[len(f.docs)-1]
}

func contentDoc(id string, level model.DifficultyLevel) search.Document {
	return search.Document{
		"id":               id,
		"title":            "Title " + id,
		"description":      "About " + id,
		"content_type":     "video",
		"subject":          "Mathematics",
		"difficulty_level": string(level),
		"url":              "https://example.org/" + id,
		"grade_level":      []any{float64(5)},
		"duration_minutes": float64(15),
	}
}

func catalog() []search.Document {
	return []search.Document{
		contentDoc("b1", model.DifficultyBeginner),
		contentDoc("b2", model.DifficultyBeginner),
		contentDoc("b3", model.DifficultyBeginner),
		contentDoc("a1", model.DifficultyAdvanced),
		contentDoc("a2", model.DifficultyAdvanced),
		contentDoc("a3", model.DifficultyAdvanced),
		contentDoc("a4", model.DifficultyAdvanced),
	}
}

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	profiles *ProfileService
	recs     *RecommendationService
	plans    *LearningPlanService
	index    *fakeIndexer
}

func newTestEnv(t *testing.T, completer planner.Completer) *testEnv {
	t.Helper()
	db := newTestDB(t)
	cfg := &config.Config{
		Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir(), ExportPrefix: "plans"},
		Planner: config.PlannerConfig{ContentIDPolicy: "substitute", DailyMinutes: 60, DefaultPeriod: "one_week"},
	}

	index := &fakeIndexer{}
	profiles := NewProfileService(repository.NewProfileRepository(db))
	profiles.Index = index
	retriever := retrieval.NewRetriever(fakeEmbedder{}, &fakeSearcher{docs: catalog()},
		config.RetrievalConfig{StageTimeout: time.Second}, ranking.GradeBands{})
	ranker := ranking.NewRanker(nil)
	ranker.Now = func() time.Time { return fixedNow }
	recs := NewRecommendationService(profiles, retriever, ranker, nil, 0)

	assembler := planner.NewAssembler(completer, cfg.Planner.ContentIDPolicy)
	assembler.Now = func() time.Time { return fixedNow }

	plans := NewLearningPlanService(repository.NewLearningPlanRepository(db), profiles, recs, assembler,
		NewStorageService(context.Background(), cfg), index, cfg)
	plans.Now = func() time.Time { return fixedNow }

	return &testEnv{db: db, cfg: cfg, profiles: profiles, recs: recs, plans: plans, index: index}
}

func (e *testEnv) seedProfile(t *testing.T, userID uint) *model.StudentProfile {
	t.Helper()
	name, grade, style := "Sam Lee", 5, "visual"
	p, err := e.profiles.Create(userID, ProfileInput{
		FullName:            &name,
		GradeLevel:          &grade,
		LearningStyle:       &style,
		SubjectsOfInterest:  []string{"Mathematics"},
		AreasForImprovement: []string{"fractions"},
	})
	if err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p
}

func wantErr(t *testing.T, err error, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error: want=%v got=%v", want, err)
	}
}
