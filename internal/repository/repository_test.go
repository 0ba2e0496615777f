package repository

import (
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/pkg/database"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func strPtr(s string) *string { return &s }

func planFixture(studentID uint, subject string) *model.LearningPlan {
	return &model.LearningPlan{
		StudentID:    studentID,
		Title:        subject + " plan",
		Subject:      subject,
		Topics:       []string{subject},
		Status:       model.StatusNotStarted,
		DurationDays: 2,
		Metadata:     map[string]any{"generated_by": "llm"},
		Activities: []model.LearningActivity{
			{Title: "second", Day: 2, Order: 1, DurationMinutes: 15, Status: model.StatusNotStarted},
			{Title: "first-b", Day: 1, Order: 2, DurationMinutes: 20, Status: model.StatusNotStarted},
			{Title: "first-a", Day: 1, Order: 1, DurationMinutes: 10, ContentID: strPtr("c1"), Status: model.StatusNotStarted,
				Metadata: map[string]any{"week": 1}},
		},
	}
}

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))

	u := &model.User{Name: "Sam", Email: " Sam@Example.org ", Password: "hash", Role: model.Student}
	if err := repo.Create(u); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.FindByEmail("SAM@example.org")
	if err != nil || got.ID != u.ID {
		t.Fatalf("find by email: want id=%d got=%+v err=%v", u.ID, got, err)
	}
	if err := repo.Create(&model.User{Name: "Dup", Email: "sam@example.org", Password: "x"}); err == nil {
		t.Fatalf("duplicate email: want error")
	}
	if err := repo.UpdateLastSeen(u.ID); err != nil {
		t.Fatalf("update last seen: %v", err)
	}
	got, _ = repo.FindByID(u.ID)
	if got.LastSeen.IsZero() {
		t.Fatalf("last seen: want set")
	}
}

func TestProfileRepository(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))

	p := &model.StudentProfile{
		UserID:             3,
		FullName:           "Sam Lee",
		GradeLevel:         5,
		LearningStyle:      model.LearningStyleVisual,
		SubjectsOfInterest: []string{"Mathematics", "Science"},
		Interests:          []string{"space"},
	}
	if err := repo.Create(p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("id: want generated uuid")
	}

	got, err := repo.FindByUserID(3)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got.SubjectsOfInterest) != 2 || got.SubjectsOfInterest[1] != "Science" || got.Interests[0] != "space" {
		t.Fatalf("json columns: got=%+v", got)
	}

	var seen int
	err = repo.ListAll(10, func(batch []model.StudentProfile) error {
		seen += len(batch)
		return nil
	})
	if err != nil || seen != 1 {
		t.Fatalf("list all: want=1 got=%d err=%v", seen, err)
	}
}

func TestLearningPlanRepositoryLifecycle(t *testing.T) {
	repo := NewLearningPlanRepository(newTestDB(t))

	plan := planFixture(9, "Mathematics")
	if err := repo.Create(plan); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.FindByID(plan.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var titles []string
	for _, a := range got.Activities {
		if a.PlanID != plan.ID {
			t.Fatalf("activity plan id: want=%s got=%s", plan.ID, a.PlanID)
		}
		titles = append(titles, a.Title)
	}
	if strings.Join(titles, ",") != "first-a,first-b,second" {
		t.Fatalf("activity order: got=%v", titles)
	}
	if got.Activities[0].ContentID == nil || *got.Activities[0].ContentID != "c1" {
		t.Fatalf("content id: got=%v", got.Activities[0].ContentID)
	}
	if got.Metadata["generated_by"] != "llm" {
		t.Fatalf("metadata: got=%v", got.Metadata)
	}

	act, err := repo.FindActivity(plan.ID, got.Activities[0].ID)
	if err != nil {
		t.Fatalf("find activity: %v", err)
	}
	if _, err := repo.FindActivity("other-plan", act.ID); err == nil {
		t.Fatalf("activity from other plan: want error")
	}

	now := time.Now()
	act.Status = model.StatusCompleted
	act.CompletedAt = &now
	if err := repo.UpdateActivityStatus(act, 33.33, model.StatusInProgress); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ = repo.FindByID(plan.ID)
	if got.ProgressPercentage != 33.33 || got.Status != model.StatusInProgress || got.Activities[0].Status != model.StatusCompleted {
		t.Fatalf("after update: progress=%v status=%s act=%s", got.ProgressPercentage, got.Status, got.Activities[0].Status)
	}

	stats, err := repo.Stats(9)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPlans != 1 || stats.InProgressPlans != 1 || stats.TotalActivities != 3 ||
		stats.CompletedActivities != 1 || stats.CompletedMinutes != 10 {
		t.Fatalf("stats: got=%+v", stats)
	}
	if len(stats.Subjects) != 1 || stats.Subjects[0].Subject != "Mathematics" || stats.Subjects[0].AverageProgress != 33.33 {
		t.Fatalf("subject breakdown: got=%+v", stats.Subjects)
	}

	if err := repo.Delete(plan.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(plan.ID); err != gorm.ErrRecordNotFound {
		t.Fatalf("after delete: want ErrRecordNotFound got=%v", err)
	}
	stats, _ = repo.Stats(9)
	if stats.TotalPlans != 0 || stats.TotalActivities != 0 {
		t.Fatalf("stats after delete: got=%+v", stats)
	}
}

func TestLearningPlanRepositoryListAndAdapt(t *testing.T) {
	repo := NewLearningPlanRepository(newTestDB(t))
	for _, subject := range []string{"Mathematics", "Science", "Mathematics"} {
		if err := repo.Create(planFixture(4, subject)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := repo.Create(planFixture(5, "Mathematics")); err != nil {
		t.Fatalf("create other student: %v", err)
	}

	plans, total, err := repo.ListByStudent(4, "Mathematics", 1, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(plans) != 1 || len(plans[0].Activities) != 3 {
		t.Fatalf("list: want total=2 page=1 got total=%d page=%d", total, len(plans))
	}

	plan := &plans[0]
	plan.Activities = append(plan.Activities, model.LearningActivity{
		UUIDBase:        model.UUIDBase{ID: model.NewID()},
		Title:           "challenge",
		Day:             2,
		Order:           2,
		DurationMinutes: 30,
		Status:          model.StatusNotStarted,
	})
	plan.Metadata["adaptation"] = "harder"
	if err := repo.SaveAdapted(plan); err != nil {
		t.Fatalf("save adapted: %v", err)
	}
	got, _ := repo.FindByID(plan.ID)
	if len(got.Activities) != 4 || got.Activities[3].Title != "challenge" {
		t.Fatalf("adapted activities: got=%d", len(got.Activities))
	}
	if got.Metadata["adaptation"] != "harder" {
		t.Fatalf("adapted metadata: got=%v", got.Metadata)
	}
}
