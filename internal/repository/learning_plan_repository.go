package repository

import (
	"edu_copilot_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type LearningPlanRepository struct {
	DB *gorm.DB
}

func NewLearningPlanRepository(db *gorm.DB) *LearningPlanRepository {
	return &LearningPlanRepository{DB: db}
}

func orderedActivities(db *gorm.DB) *gorm.DB {
	return db.Order("day asc, sort_order asc")
}

// Create 在同一事务中写入计划及其全部活动
func (r *LearningPlanRepository) Create(plan *model.LearningPlan) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		activities := plan.Activities
		plan.Activities = nil
		if err := tx.Create(plan).Error; err != nil {
			plan.Activities = activities
			return err
		}
		for i := range activities {
			activities[i].PlanID = plan.ID
		}
		plan.Activities = activities
		if len(activities) == 0 {
			return nil
		}
		return tx.CreateInBatches(&plan.Activities, 100).Error
	})
}

func (r *LearningPlanRepository) FindByID(id string) (*model.LearningPlan, error) {
	var plan model.LearningPlan
	err := r.DB.Preload("Activities", orderedActivities).Where("id = ?", id).First(&plan).Error
	return &plan, err
}

// ListByStudent 按创建时间倒序分页，subject 为空时不过滤
func (r *LearningPlanRepository) ListByStudent(studentID uint, subject string, page, limit int) ([]model.LearningPlan, int64, error) {
	var plans []model.LearningPlan
	var total int64

	query := r.DB.Model(&model.LearningPlan{}).Where("student_id = ?", studentID)
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Activities", orderedActivities).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&plans).Error
	return plans, total, err
}

// FindActivity 活动必须属于指定计划
func (r *LearningPlanRepository) FindActivity(planID, activityID string) (*model.LearningActivity, error) {
	var act model.LearningActivity
	err := r.DB.Where("id = ? AND plan_id = ?", activityID, planID).First(&act).Error
	return &act, err
}

// UpdateActivityStatus 更新活动状态并同步计划进度
func (r *LearningPlanRepository) UpdateActivityStatus(act *model.LearningActivity, progress float64, planStatus model.ActivityStatus) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.LearningActivity{}).
			Where("id = ?", act.ID).
			Updates(map[string]any{
				"status":       act.Status,
				"completed_at": act.CompletedAt,
			}).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.LearningPlan{}).
			Where("id = ?", act.PlanID).
			Updates(map[string]any{
				"progress_percentage": progress,
				"status":              planStatus,
				"updated_at":          time.Now(),
			}).Error
	})
}

// SaveAdapted 持久化调整后的计划：更新已有活动并插入新增活动
func (r *LearningPlanRepository) SaveAdapted(plan *model.LearningPlan) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for i := range plan.Activities {
			act := &plan.Activities[i]
			act.PlanID = plan.ID
			if err := tx.Save(act).Error; err != nil {
				return err
			}
		}
		// 结构体更新才会经过 metadata 的 json serializer
		return tx.Model(plan).
			Select("progress_percentage", "status", "metadata").
			Updates(plan).Error
	})
}

func (r *LearningPlanRepository) UpdateMetadata(plan *model.LearningPlan) error {
	return r.DB.Model(plan).Select("metadata").Updates(plan).Error
}

func (r *LearningPlanRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", id).Delete(&model.LearningActivity{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.LearningPlan{}).Error
	})
}

// ProgressStats 学生所有计划的汇总进度
type ProgressStats struct {
	TotalPlans          int64             `json:"totalPlans"`
	CompletedPlans      int64             `json:"completedPlans"`
	InProgressPlans     int64             `json:"inProgressPlans"`
	TotalActivities     int64             `json:"totalActivities"`
	CompletedActivities int64             `json:"completedActivities"`
	CompletedMinutes    int64             `json:"completedMinutes"`
	AverageProgress     float64           `json:"averageProgress"`
	Subjects            []SubjectProgress `json:"subjects"`
}

type SubjectProgress struct {
	Subject         string  `json:"subject"`
	Plans           int64   `json:"plans"`
	CompletedPlans  int64   `json:"completedPlans"`
	AverageProgress float64 `json:"averageProgress"`
}

func (r *LearningPlanRepository) Stats(studentID uint) (*ProgressStats, error) {
	var stats ProgressStats

	if err := r.DB.Model(&model.LearningPlan{}).
		Where("student_id = ?", studentID).
		Count(&stats.TotalPlans).Error; err != nil {
		return nil, err
	}
	if err := r.DB.Model(&model.LearningPlan{}).
		Where("student_id = ? AND status = ?", studentID, model.StatusCompleted).
		Count(&stats.CompletedPlans).Error; err != nil {
		return nil, err
	}
	if err := r.DB.Model(&model.LearningPlan{}).
		Where("student_id = ? AND status = ?", studentID, model.StatusInProgress).
		Count(&stats.InProgressPlans).Error; err != nil {
		return nil, err
	}
	if stats.TotalPlans > 0 {
		var avg struct{ Avg float64 }
		if err := r.DB.Model(&model.LearningPlan{}).
			Select("COALESCE(AVG(progress_percentage), 0) AS avg").
			Where("student_id = ?", studentID).
			Scan(&avg).Error; err != nil {
			return nil, err
		}
		stats.AverageProgress = avg.Avg

		if err := r.DB.Model(&model.LearningPlan{}).
			Select("subject, COUNT(*) AS plans, "+
				"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed_plans, "+
				"COALESCE(AVG(progress_percentage), 0) AS average_progress", model.StatusCompleted).
			Where("student_id = ?", studentID).
			Group("subject").
			Order("subject asc").
			Scan(&stats.Subjects).Error; err != nil {
			return nil, err
		}
	}

	acts := r.DB.Model(&model.LearningActivity{}).
		Joins("JOIN learning_plans ON learning_plans.id = learning_activities.plan_id").
		Where("learning_plans.student_id = ? AND learning_plans.deleted_at IS NULL", studentID)
	if err := acts.Session(&gorm.Session{}).Count(&stats.TotalActivities).Error; err != nil {
		return nil, err
	}
	var done struct {
		N       int64
		Minutes int64
	}
	if err := acts.Session(&gorm.Session{}).
		Select("COUNT(*) AS n, COALESCE(SUM(learning_activities.duration_minutes), 0) AS minutes").
		Where("learning_activities.status = ?", model.StatusCompleted).
		Scan(&done).Error; err != nil {
		return nil, err
	}
	stats.CompletedActivities = done.N
	stats.CompletedMinutes = done.Minutes
	return &stats, nil
}
