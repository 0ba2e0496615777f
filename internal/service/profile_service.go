package service

import (
	"context"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/repository"
	"edu_copilot_backend/internal/search"
	"edu_copilot_backend/internal/util"
	"edu_copilot_backend/pkg/logger"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProfileInput 创建和更新学生档案的字段；更新时 nil 表示不修改
type ProfileInput struct {
	FullName            *string  `json:"fullName"`
	GradeLevel          *int     `json:"gradeLevel" binding:"omitempty,min=0,max=12"`
	LearningStyle       *string  `json:"learningStyle"`
	SubjectsOfInterest  []string `json:"subjectsOfInterest"`
	AreasForImprovement []string `json:"areasForImprovement"`
	Strengths           []string `json:"strengths"`
	Interests           []string `json:"interests"`
}

type ProfileService struct {
	Repo  *repository.ProfileRepository
	Index Indexer
}

func NewProfileService(repo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{Repo: repo}
}

func (s *ProfileService) Create(userID uint, in ProfileInput) (*model.StudentProfile, error) {
	_, err := s.Repo.FindByUserID(userID)
	if err == nil {
		return nil, util.ErrProfileExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	p := &model.StudentProfile{UserID: userID, LearningStyle: model.LearningStyleMixed}
	apply(p, in)
	if err := s.Repo.Create(p); err != nil {
		return nil, err
	}
	s.mirror(p)
	return p, nil
}

func (s *ProfileService) Get(userID uint) (*model.StudentProfile, error) {
	p, err := s.Repo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) Update(userID uint, in ProfileInput) (*model.StudentProfile, error) {
	p, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	apply(p, in)
	if err := s.Repo.Update(p); err != nil {
		return nil, err
	}
	s.mirror(p)
	return p, nil
}

// Snapshot 请求内只读的档案拷贝
func (s *ProfileService) Snapshot(userID uint) (model.StudentProfile, error) {
	p, err := s.Get(userID)
	if err != nil {
		return model.StudentProfile{}, err
	}
	return p.Snapshot(), nil
}

// mirror 档案同步到搜索索引，失败不影响数据库写入
func (s *ProfileService) mirror(p *model.StudentProfile) {
	if s.Index == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	doc := search.Document{
		"id":                    p.ID,
		"user_id":               strconv.FormatUint(uint64(p.UserID), 10),
		"full_name":             p.FullName,
		"grade_level":           p.GradeLevel,
		"learning_style":        string(p.LearningStyle),
		"subjects_of_interest":  p.SubjectsOfInterest,
		"areas_for_improvement": p.AreasForImprovement,
		"strengths":             p.Strengths,
		"interests":             p.Interests,
		"updated_at":            p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if err := s.Index.MergeOrUpload(ctx, []search.Document{doc}); err != nil {
		logger.Log.Warn("Failed to mirror student profile to search index",
			zap.String("profile_id", p.ID),
			zap.Error(err))
	}
}

func apply(p *model.StudentProfile, in ProfileInput) {
	if in.FullName != nil {
		p.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.GradeLevel != nil {
		p.GradeLevel = *in.GradeLevel
	}
	if in.LearningStyle != nil {
		p.LearningStyle = model.ParseLearningStyle(*in.LearningStyle)
	}
	if in.SubjectsOfInterest != nil {
		p.SubjectsOfInterest = cleanList(in.SubjectsOfInterest)
	}
	if in.AreasForImprovement != nil {
		p.AreasForImprovement = cleanList(in.AreasForImprovement)
	}
	if in.Strengths != nil {
		p.Strengths = cleanList(in.Strengths)
	}
	if in.Interests != nil {
		p.Interests = cleanList(in.Interests)
	}
}

// cleanList 去空白、去重（忽略大小写），保持顺序
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
