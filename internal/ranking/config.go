package ranking

import "fmt"

// GradeBands 年级分段：<= Elementary 为小学，<= Middle 为初中，其余为高中
type GradeBands struct {
	Elementary int `mapstructure:"elementary" json:"elementary"`
	Middle     int `mapstructure:"middle" json:"middle"`
	MinGrade   int `mapstructure:"min_grade" json:"min_grade"`
	MaxGrade   int `mapstructure:"max_grade" json:"max_grade"`
}

// DurationFit 某个年级段的理想时长窗口，超过 LongerThan 分钟时施加 Penalty
type DurationFit struct {
	IdealMin   int     `mapstructure:"ideal_min" json:"ideal_min"`
	IdealMax   int     `mapstructure:"ideal_max" json:"ideal_max"`
	Bonus      float64 `mapstructure:"bonus" json:"bonus"`
	LongerThan int     `mapstructure:"longer_than" json:"longer_than"`
	Penalty    float64 `mapstructure:"penalty" json:"penalty"`
}

type DurationWeights struct {
	Elementary DurationFit `mapstructure:"elementary" json:"elementary"`
	Middle     DurationFit `mapstructure:"middle" json:"middle"`
	High       DurationFit `mapstructure:"high" json:"high"`
}

type DifficultyWeights struct {
	Match                     float64 `mapstructure:"match" json:"match"`
	ElementaryAdvancedPenalty float64 `mapstructure:"elementary_advanced_penalty" json:"elementary_advanced_penalty"`
	MiddleAdvancedPenalty     float64 `mapstructure:"middle_advanced_penalty" json:"middle_advanced_penalty"`
	MiddleAdvancedBelowGrade  int     `mapstructure:"middle_advanced_below_grade" json:"middle_advanced_below_grade"`
	HighBeginnerPenalty       float64 `mapstructure:"high_beginner_penalty" json:"high_beginner_penalty"`
	HighBeginnerAboveGrade    int     `mapstructure:"high_beginner_above_grade" json:"high_beginner_above_grade"`
}

type DiversityConfig struct {
	MaxTypes int `mapstructure:"max_types" json:"max_types"`
	DefaultK int `mapstructure:"default_k" json:"default_k"`
}

// Weights 排序打分的全部可调参数
type Weights struct {
	Base            float64           `mapstructure:"base" json:"base"`
	StyleMatch      float64           `mapstructure:"style_match" json:"style_match"`
	GradeExact      float64           `mapstructure:"grade_exact" json:"grade_exact"`
	GradeAdjacent   float64           `mapstructure:"grade_adjacent" json:"grade_adjacent"`
	SubjectInterest float64           `mapstructure:"subject_interest" json:"subject_interest"`
	TopicInterest   float64           `mapstructure:"topic_interest" json:"topic_interest"`
	Freshness       float64           `mapstructure:"freshness" json:"freshness"`
	FreshnessDays   int               `mapstructure:"freshness_days" json:"freshness_days"`
	Bands           GradeBands        `mapstructure:"bands" json:"bands"`
	Duration        DurationWeights   `mapstructure:"duration" json:"duration"`
	Difficulty      DifficultyWeights `mapstructure:"difficulty" json:"difficulty"`
	Diversity       DiversityConfig   `mapstructure:"diversity" json:"diversity"`
}

// DefaultWeights 默认权重
//
// score = base + style + grade + subject + topic + freshness + duration + difficulty
func DefaultWeights() *Weights {
	return &Weights{
		Base:            1.0,
		StyleMatch:      0.4,
		GradeExact:      0.3,
		GradeAdjacent:   0.1,
		SubjectInterest: 0.3,
		TopicInterest:   0.2,
		Freshness:       0.1,
		FreshnessDays:   180,
		Bands: GradeBands{
			Elementary: 5,
			Middle:     8,
			MinGrade:   1,
			MaxGrade:   12,
		},
		Duration: DurationWeights{
			Elementary: DurationFit{IdealMin: 5, IdealMax: 15, Bonus: 0.2, LongerThan: 30, Penalty: -0.2},
			Middle:     DurationFit{IdealMin: 10, IdealMax: 25, Bonus: 0.2, LongerThan: 45, Penalty: -0.1},
			High:       DurationFit{IdealMin: 15, IdealMax: 45, Bonus: 0.2},
		},
		Difficulty: DifficultyWeights{
			Match:                     0.3,
			ElementaryAdvancedPenalty: -0.2,
			MiddleAdvancedPenalty:     -0.1,
			MiddleAdvancedBelowGrade:  7,
			HighBeginnerPenalty:       -0.1,
			HighBeginnerAboveGrade:    10,
		},
		Diversity: DiversityConfig{
			MaxTypes: 5,
			DefaultK: 10,
		},
	}
}

func pickF(base, override float64) float64 {
	if override != 0 {
		return override
	}
	return base
}

func pickI(base, override int) int {
	if override != 0 {
		return override
	}
	return base
}

func mergeFit(base, o DurationFit) DurationFit {
	return DurationFit{
		IdealMin:   pickI(base.IdealMin, o.IdealMin),
		IdealMax:   pickI(base.IdealMax, o.IdealMax),
		Bonus:      pickF(base.Bonus, o.Bonus),
		LongerThan: pickI(base.LongerThan, o.LongerThan),
		Penalty:    pickF(base.Penalty, o.Penalty),
	}
}

// MergeWeights 只覆盖 override 中的非零字段，零值视为未配置
func MergeWeights(base *Weights, override *Weights) *Weights {
	if base == nil {
		base = DefaultWeights()
	}
	result := *base
	if override == nil {
		return &result
	}

	result.Base = pickF(base.Base, override.Base)
	result.StyleMatch = pickF(base.StyleMatch, override.StyleMatch)
	result.GradeExact = pickF(base.GradeExact, override.GradeExact)
	result.GradeAdjacent = pickF(base.GradeAdjacent, override.GradeAdjacent)
	result.SubjectInterest = pickF(base.SubjectInterest, override.SubjectInterest)
	result.TopicInterest = pickF(base.TopicInterest, override.TopicInterest)
	result.Freshness = pickF(base.Freshness, override.Freshness)
	result.FreshnessDays = pickI(base.FreshnessDays, override.FreshnessDays)

	result.Bands = GradeBands{
		Elementary: pickI(base.Bands.Elementary, override.Bands.Elementary),
		Middle:     pickI(base.Bands.Middle, override.Bands.Middle),
		MinGrade:   pickI(base.Bands.MinGrade, override.Bands.MinGrade),
		MaxGrade:   pickI(base.Bands.MaxGrade, override.Bands.MaxGrade),
	}

	result.Duration = DurationWeights{
		Elementary: mergeFit(base.Duration.Elementary, override.Duration.Elementary),
		Middle:     mergeFit(base.Duration.Middle, override.Duration.Middle),
		High:       mergeFit(base.Duration.High, override.Duration.High),
	}

	d, o := base.Difficulty, override.Difficulty
	result.Difficulty = DifficultyWeights{
		Match:                     pickF(d.Match, o.Match),
		ElementaryAdvancedPenalty: pickF(d.ElementaryAdvancedPenalty, o.ElementaryAdvancedPenalty),
		MiddleAdvancedPenalty:     pickF(d.MiddleAdvancedPenalty, o.MiddleAdvancedPenalty),
		MiddleAdvancedBelowGrade:  pickI(d.MiddleAdvancedBelowGrade, o.MiddleAdvancedBelowGrade),
		HighBeginnerPenalty:       pickF(d.HighBeginnerPenalty, o.HighBeginnerPenalty),
		HighBeginnerAboveGrade:    pickI(d.HighBeginnerAboveGrade, o.HighBeginnerAboveGrade),
	}

	result.Diversity = DiversityConfig{
		MaxTypes: pickI(base.Diversity.MaxTypes, override.Diversity.MaxTypes),
		DefaultK: pickI(base.Diversity.DefaultK, override.Diversity.DefaultK),
	}

	return &result
}

// Overrides 列出与默认值不同的顶层权重，便于启动和热加载时记录日志
func Overrides(defaults, loaded *Weights) []string {
	var out []string
	add := func(name string, a, b float64) {
		if a != b {
			out = append(out, fmt.Sprintf("%s: %.2f -> %.2f", name, a, b))
		}
	}
	add("base", defaults.Base, loaded.Base)
	add("style_match", defaults.StyleMatch, loaded.StyleMatch)
	add("grade_exact", defaults.GradeExact, loaded.GradeExact)
	add("grade_adjacent", defaults.GradeAdjacent, loaded.GradeAdjacent)
	add("subject_interest", defaults.SubjectInterest, loaded.SubjectInterest)
	add("topic_interest", defaults.TopicInterest, loaded.TopicInterest)
	add("freshness", defaults.Freshness, loaded.Freshness)
	add("difficulty.match", defaults.Difficulty.Match, loaded.Difficulty.Match)
	add("bands.elementary", float64(defaults.Bands.Elementary), float64(loaded.Bands.Elementary))
	add("bands.middle", float64(defaults.Bands.Middle), float64(loaded.Bands.Middle))
	add("diversity.max_types", float64(defaults.Diversity.MaxTypes), float64(loaded.Diversity.MaxTypes))
	return out
}
