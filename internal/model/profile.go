package model

import "strings"

type LearningStyle string

const (
	LearningStyleVisual         LearningStyle = "visual"
	LearningStyleAuditory       LearningStyle = "auditory"
	LearningStyleReadingWriting LearningStyle = "reading_writing"
	LearningStyleKinesthetic    LearningStyle = "kinesthetic"
	LearningStyleMixed          LearningStyle = "mixed"
)

var learningStyleAliases = map[string]LearningStyle{
	"visual":          LearningStyleVisual,
	"auditory":        LearningStyleAuditory,
	"reading":         LearningStyleReadingWriting,
	"reading_writing": LearningStyleReadingWriting,
	"read/write":      LearningStyleReadingWriting,
	"kinesthetic":     LearningStyleKinesthetic,
	"tactile":         LearningStyleKinesthetic,
	"mixed":           LearningStyleMixed,
	"multimodal":      LearningStyleMixed,
}

// ParseLearningStyle 解析学习风格，无法识别时回退为 mixed
func ParseLearningStyle(s string) LearningStyle {
	if ls, ok := learningStyleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return ls
	}
	return LearningStyleMixed
}

// swagger:model StudentProfile
type StudentProfile struct {
	UUIDBase
	UserID              uint          `gorm:"index;not null" json:"userId"`
	FullName            string        `gorm:"size:100" json:"fullName"`
	GradeLevel          int           `gorm:"default:0" json:"gradeLevel"`
	LearningStyle       LearningStyle `gorm:"size:20;default:'mixed'" json:"learningStyle"`
	SubjectsOfInterest  []string      `gorm:"serializer:json;type:text" json:"subjectsOfInterest"`
	AreasForImprovement []string      `gorm:"serializer:json;type:text" json:"areasForImprovement"`
	Strengths           []string      `gorm:"serializer:json;type:text" json:"strengths"`
	Interests           []string      `gorm:"serializer:json;type:text" json:"interests"`
}

func (StudentProfile) TableName() string {
	return "student_profiles"
}

// Snapshot 返回一份请求内不可变的拷贝，检索与排序只读取该拷贝
func (p *StudentProfile) Snapshot() StudentProfile {
	cp := *p
	cp.SubjectsOfInterest = append([]string(nil), p.SubjectsOfInterest...)
	cp.AreasForImprovement = append([]string(nil), p.AreasForImprovement...)
	cp.Strengths = append([]string(nil), p.Strengths...)
	cp.Interests = append([]string(nil), p.Interests...)
	return cp
}
