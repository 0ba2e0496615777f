package ranking

import (
	"edu_copilot_backend/internal/model"
	"sort"
	"sync"
	"time"
)

// Scored 带分数的内容
type Scored struct {
	Item      model.ContentItem `json:"item"`
	Score     float64           `json:"score"`
	Breakdown Breakdown         `json:"breakdown"`
}

// Ranker 打分、排序并做类型多样性选择。权重可在运行时替换
type Ranker struct {
	mu      sync.RWMutex
	weights *Weights
	Now     func() time.Time
}

func NewRanker(w *Weights) *Ranker {
	return &Ranker{
		weights: MergeWeights(DefaultWeights(), w),
		Now:     time.Now,
	}
}

func (r *Ranker) SetWeights(w *Weights) {
	merged := MergeWeights(DefaultWeights(), w)
	r.mu.Lock()
	r.weights = merged
	r.mu.Unlock()
}

func (r *Ranker) Weights() *Weights {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := *r.weights
	return &cp
}

// Rank 返回最多 k 条内容；k <= 0 时使用默认值。相同输入得到相同顺序
func (r *Ranker) Rank(items []model.ContentItem, profile *model.StudentProfile, k int) []model.ContentItem {
	scored := r.RankScored(items, profile, k)
	out := make([]model.ContentItem, len(scored))
	for i := range scored {
		out[i] = scored[i].Item
	}
	return out
}

func (r *Ranker) RankScored(items []model.ContentItem, profile *model.StudentProfile, k int) []Scored {
	w := r.Weights()
	if k <= 0 {
		k = w.Diversity.DefaultK
	}
	now := r.Now()

	scored := make([]Scored, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i := range items {
		if seen[items[i].ID] {
			continue
		}
		seen[items[i].ID] = true
		b := ScoreBreakdown(&items[i], profile, w, now)
		scored = append(scored, Scored{Item: items[i], Score: b.Total(), Breakdown: b})
	}

	SortByScore(scored)
	return Diversify(scored, k, w.Diversity.MaxTypes)
}

// SortByScore 按分数降序稳定排序，同分保持输入顺序
func SortByScore(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}

// Diversify 先为每种内容类型各取一条最高分，直到覆盖 min(maxTypes, 类型数) 种，
// 再按分数回填到 min(k, len(sorted)) 条
func Diversify(sorted []Scored, k, maxTypes int) []Scored {
	limit := k
	if len(sorted) < limit {
		limit = len(sorted)
	}
	if limit <= 0 {
		return []Scored{}
	}

	distinct := make(map[model.ContentType]bool)
	for i := range sorted {
		distinct[sorted[i].Item.ContentType] = true
	}
	target := len(distinct)
	if maxTypes > 0 && maxTypes < target {
		target = maxTypes
	}
	if target > limit {
		target = limit
	}

	selected := make([]Scored, 0, limit)
	picked := make(map[int]bool, limit)
	covered := make(map[model.ContentType]bool, target)

	for i := range sorted {
		if len(covered) >= target {
			break
		}
		t := sorted[i].Item.ContentType
		if covered[t] {
			continue
		}
		covered[t] = true
		picked[i] = true
		selected = append(selected, sorted[i])
	}

	for i := range sorted {
		if len(selected) >= limit {
			break
		}
		if picked[i] {
			continue
		}
		picked[i] = true
		selected = append(selected, sorted[i])
	}

	return selected
}

// GroupByLearningStyle 按学习风格的优先类型分组，
// 每个优先类型最多 limit/len(types)+1 条，其余类型归入 "other"，最多 limit/4 条
func GroupByLearningStyle(items []model.ContentItem, style model.LearningStyle, limit int) map[string][]model.ContentItem {
	types := GroupPriorityTypes(style)
	perType := limit/len(types) + 1

	result := make(map[string][]model.ContentItem)
	for _, t := range types {
		var matching []model.ContentItem
		for _, it := range items {
			if it.ContentType == t {
				matching = append(matching, it)
			}
		}
		if len(matching) > 0 {
			if len(matching) > perType {
				matching = matching[:perType]
			}
			result[string(t)] = matching
		}
	}

	var other []model.ContentItem
	for _, it := range items {
		if !containsType(types, it.ContentType) {
			other = append(other, it)
		}
	}
	if len(other) > 0 {
		if maxOther := limit / 4; len(other) > maxOther {
			other = other[:maxOther]
		}
		if len(other) > 0 {
			result["other"] = other
		}
	}
	return result
}
