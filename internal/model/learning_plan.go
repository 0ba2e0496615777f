package model

import (
	"time"
)

type ActivityStatus string

const (
	StatusNotStarted ActivityStatus = "not_started"
	StatusInProgress ActivityStatus = "in_progress"
	StatusCompleted  ActivityStatus = "completed"
)

func (s ActivityStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type LearningPeriod string

const (
	PeriodOneWeek    LearningPeriod = "one_week"
	PeriodTwoWeeks   LearningPeriod = "two_weeks"
	PeriodOneMonth   LearningPeriod = "one_month"
	PeriodTwoMonths  LearningPeriod = "two_months"
	PeriodSchoolTerm LearningPeriod = "school_term"
)

var periodDays = map[LearningPeriod]int{
	PeriodOneWeek:    7,
	PeriodTwoWeeks:   14,
	PeriodOneMonth:   30,
	PeriodTwoMonths:  60,
	PeriodSchoolTerm: 90,
}

// ParseLearningPeriod 未知取值回退为 one_month
func ParseLearningPeriod(s string) LearningPeriod {
	p := LearningPeriod(s)
	if _, ok := periodDays[p]; ok {
		return p
	}
	return PeriodOneMonth
}

func (p LearningPeriod) Days() int {
	if d, ok := periodDays[p]; ok {
		return d
	}
	return periodDays[PeriodOneMonth]
}

// swagger:model LearningActivity
type LearningActivity struct {
	UUIDBase
	PlanID          string         `gorm:"index;type:varchar(36)" json:"planId"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	ContentID       *string        `gorm:"type:varchar(128)" json:"contentId"`
	ContentURL      string         `gorm:"size:512" json:"contentUrl,omitempty"`
	DurationMinutes int            `gorm:"default:20" json:"durationMinutes"`
	Day             int            `gorm:"not null;index" json:"day"`
	Order           int            `gorm:"column:sort_order;default:1" json:"order"`
	Status          ActivityStatus `gorm:"size:20;default:'not_started'" json:"status"`
	LearningBenefit string         `gorm:"type:text" json:"learningBenefit,omitempty"`
	Metadata        map[string]any `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
}

func (LearningActivity) TableName() string {
	return "learning_activities"
}

// swagger:model LearningPlan
type LearningPlan struct {
	UUIDBase
	StudentID          uint               `gorm:"index;not null" json:"studentId"`
	ProfileID          string             `gorm:"index;type:varchar(36)" json:"profileId,omitempty"`
	Title              string             `gorm:"size:255;not null" json:"title"`
	Description        string             `gorm:"type:text" json:"description"`
	Subject            string             `gorm:"size:100;index" json:"subject"`
	Topics             []string           `gorm:"serializer:json;type:text" json:"topics"`
	Activities         []LearningActivity `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"activities"`
	Status             ActivityStatus     `gorm:"size:20;default:'not_started'" json:"status"`
	ProgressPercentage float64            `gorm:"default:0" json:"progressPercentage"`
	LearningPeriod     LearningPeriod     `gorm:"size:20" json:"learningPeriod,omitempty"`
	DurationDays       int                `gorm:"default:7" json:"durationDays"`
	StartDate          *time.Time         `json:"startDate,omitempty"`
	EndDate            *time.Time         `json:"endDate,omitempty"`
	Metadata           map[string]any     `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
}

func (LearningPlan) TableName() string {
	return "learning_plans"
}

// PerformanceMetrics 学习表现，用于动态调整计划难度
type PerformanceMetrics struct {
	AvgQuizScore        *float64 `json:"avgQuizScore"`
	WritingQuality      *float64 `json:"writingQuality"`
	AreasForImprovement []string `json:"areasForImprovement"`
}

// QuizScore 缺省 0.7
func (m PerformanceMetrics) QuizScore() float64 {
	if m.AvgQuizScore == nil {
		return 0.7
	}
	return *m.AvgQuizScore
}

// Writing 缺省 70
func (m PerformanceMetrics) Writing() float64 {
	if m.WritingQuality == nil {
		return 70
	}
	return *m.WritingQuality
}
