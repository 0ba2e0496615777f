package service

import (
	"context"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/ranking"
	"edu_copilot_backend/internal/repository"
	"edu_copilot_backend/internal/retrieval"
	"edu_copilot_backend/internal/util"
	"edu_copilot_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	defaultRecommendCacheTTL = 10 * time.Minute
	adaptPoolSize            = 30
	warmupBatch              = 100
)

type RecommendationService struct {
	Profiles  *ProfileService
	Retriever *retrieval.Retriever
	Ranker    *ranking.Ranker
	Redis     *redis.Client
	CacheTTL  time.Duration
}

func NewRecommendationService(profiles *ProfileService, retriever *retrieval.Retriever, ranker *ranking.Ranker, rdb *redis.Client, ttl time.Duration) *RecommendationService {
	if ttl <= 0 {
		ttl = defaultRecommendCacheTTL
	}
	return &RecommendationService{
		Profiles:  profiles,
		Retriever: retriever,
		Ranker:    ranker,
		Redis:     rdb,
		CacheTTL:  ttl,
	}
}

// recommendKey 档案更新后 UpdatedAt 变化，旧缓存自然失效
func recommendKey(p *model.StudentProfile, subject string, k int) string {
	return fmt.Sprintf("rec:%s:%d:%s:%d", p.ID, p.UpdatedAt.Unix(), strings.ToLower(strings.TrimSpace(subject)), k)
}

func (s *RecommendationService) Recommend(ctx context.Context, userID uint, subject string, k int) ([]model.ContentItem, error) {
	profile, err := s.Profiles.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	return s.RecommendFor(ctx, profile, subject, k), nil
}

// RecommendFor 检索后排序；结果按档案与学科缓存在 Redis
func (s *RecommendationService) RecommendFor(ctx context.Context, profile model.StudentProfile, subject string, k int) []model.ContentItem {
	if k <= 0 {
		k = util.DefaultRecommendK
	}

	key := recommendKey(&profile, subject, k)
	if items, ok := s.cached(ctx, key); ok {
		return items
	}

	candidates := s.Retriever.Retrieve(ctx, profile, subject, k*2)
	ranked := s.Ranker.Rank(candidates, &profile, k)
	if len(ranked) > 0 {
		s.store(ctx, key, ranked)
	}
	return ranked
}

func (s *RecommendationService) cached(ctx context.Context, key string) ([]model.ContentItem, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Debug("Recommendation cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var items []model.ContentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (s *RecommendationService) store(ctx context.Context, key string, items []model.ContentItem) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, data, s.CacheTTL).Err(); err != nil {
		logger.Log.Debug("Recommendation cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// ByStyle 按学习风格把推荐内容分组，学科取档案中第一个感兴趣的学科
func (s *RecommendationService) ByStyle(ctx context.Context, userID uint, limit int) (map[string][]model.ContentItem, error) {
	profile, err := s.Profiles.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = util.DefaultRecommendK
	}
	subject := ""
	if len(profile.SubjectsOfInterest) > 0 {
		subject = profile.SubjectsOfInterest[0]
	}
	items := s.Retriever.Retrieve(ctx, profile, subject, limit*2)
	return ranking.GroupByLearningStyle(items, profile.LearningStyle, limit), nil
}

// ByTopics 年级取自档案
func (s *RecommendationService) ByTopics(ctx context.Context, userID uint, topics []string, difficulty string, k int) ([]model.ContentItem, error) {
	profile, err := s.Profiles.Snapshot(userID)
	if err != nil {
		return nil, err
	}
	level := model.DifficultyLevel(strings.ToLower(strings.TrimSpace(difficulty)))
	if !level.Valid() {
		level = ""
	}
	return s.Retriever.ByTopics(ctx, topics, profile.GradeLevel, level, k), nil
}

func (s *RecommendationService) ByMediaType(ctx context.Context, media, subject string, k int) []model.ContentItem {
	return s.Retriever.ByMediaType(ctx, media, subject, k)
}

func (s *RecommendationService) Content(ctx context.Context, id string) (*model.ContentItem, error) {
	item, ok := s.Retriever.ByID(ctx, id)
	if !ok {
		return nil, util.ErrContentNotFound
	}
	return item, nil
}

func (s *RecommendationService) Similar(ctx context.Context, id string, k int) []model.ContentItem {
	return s.Retriever.Similar(ctx, id, k)
}

func (s *RecommendationService) Progression(ctx context.Context, subject, topic string, start, end int) map[int][]model.ContentItem {
	if start <= 0 {
		start = 1
	}
	if end < start {
		end = start
	}
	return s.Retriever.Progression(ctx, subject, topic, start, end, 0)
}

// Pool 计划调整用的候选内容，不做排序截断
func (s *RecommendationService) Pool(ctx context.Context, profile model.StudentProfile, subject string) []model.ContentItem {
	return s.Retriever.Retrieve(ctx, profile, subject, adaptPoolSize)
}

// Warmup 为所有档案预先计算推荐结果，返回写入的组合数
func (s *RecommendationService) Warmup(ctx context.Context, repo *repository.ProfileRepository, subjects []string) (int, error) {
	warmed := 0
	err := repo.ListAll(warmupBatch, func(batch []model.StudentProfile) error {
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			profile := batch[i].Snapshot()
			targets := subjects
			if len(targets) == 0 {
				targets = profile.SubjectsOfInterest
			}
			for _, subject := range targets {
				if len(s.RecommendFor(ctx, profile, subject, util.DefaultRecommendK)) > 0 {
					warmed++
				}
			}
		}
		return nil
	})
	return warmed, err
}
