package ranking

import (
	"edu_copilot_backend/internal/model"
	"strings"
	"time"
)

type Band int

const (
	BandUnknown Band = iota
	BandElementary
	BandMiddle
	BandHigh
)

func (b GradeBands) Band(grade int) Band {
	switch {
	case grade <= 0:
		return BandUnknown
	case grade <= b.Elementary:
		return BandElementary
	case grade <= b.Middle:
		return BandMiddle
	default:
		return BandHigh
	}
}

// Breakdown 各因子的得分明细
type Breakdown struct {
	Base            float64 `json:"base"`
	StyleMatch      float64 `json:"styleMatch"`
	Grade           float64 `json:"grade"`
	SubjectInterest float64 `json:"subjectInterest"`
	TopicInterest   float64 `json:"topicInterest"`
	Freshness       float64 `json:"freshness"`
	Duration        float64 `json:"duration"`
	Difficulty      float64 `json:"difficulty"`
}

func (b Breakdown) Total() float64 {
	return b.Base + b.StyleMatch + b.Grade + b.SubjectInterest + b.TopicInterest +
		b.Freshness + b.Duration + b.Difficulty
}

// ScoreBreakdown 计算单个内容的各项加分，不做归一化
func ScoreBreakdown(item *model.ContentItem, profile *model.StudentProfile, w *Weights, now time.Time) Breakdown {
	b := Breakdown{Base: w.Base}

	if containsType(StyleMatchTypes(profile.LearningStyle), item.ContentType) {
		b.StyleMatch = w.StyleMatch
	}

	g := profile.GradeLevel
	if g > 0 {
		if item.HasGrade(g) {
			b.Grade = w.GradeExact
		} else if item.HasGrade(g-1) || item.HasGrade(g+1) {
			b.Grade = w.GradeAdjacent
		}
	}

	for _, s := range profile.SubjectsOfInterest {
		if strings.EqualFold(s, item.Subject) {
			b.SubjectInterest = w.SubjectInterest
			break
		}
	}

	if topicOverlap(item.Topics, interestsOf(profile)) {
		b.TopicInterest = w.TopicInterest
	}

	if item.CreatedAt != nil && w.FreshnessDays > 0 {
		if now.Sub(*item.CreatedAt) < time.Duration(w.FreshnessDays)*24*time.Hour {
			b.Freshness = w.Freshness
		}
	}

	band := w.Bands.Band(g)
	b.Duration = durationFit(item.DurationMinutes, band, &w.Duration)
	b.Difficulty = difficultyFit(item.DifficultyLevel, g, band, &w.Difficulty)

	return b
}

func Score(item *model.ContentItem, profile *model.StudentProfile, w *Weights, now time.Time) float64 {
	return ScoreBreakdown(item, profile, w, now).Total()
}

func interestsOf(p *model.StudentProfile) []string {
	out := make([]string, 0, len(p.SubjectsOfInterest)+len(p.Interests))
	out = append(out, p.SubjectsOfInterest...)
	out = append(out, p.Interests...)
	return out
}

func topicOverlap(topics, interests []string) bool {
	for _, interest := range interests {
		in := strings.ToLower(strings.TrimSpace(interest))
		if in == "" {
			continue
		}
		for _, t := range topics {
			if strings.Contains(strings.ToLower(t), in) {
				return true
			}
		}
	}
	return false
}

func durationFit(minutes int, band Band, w *DurationWeights) float64 {
	if minutes <= 0 {
		return 0
	}
	var fit DurationFit
	switch band {
	case BandElementary:
		fit = w.Elementary
	case BandMiddle:
		fit = w.Middle
	case BandHigh:
		fit = w.High
	default:
		return 0
	}
	if minutes >= fit.IdealMin && minutes <= fit.IdealMax {
		return fit.Bonus
	}
	if fit.LongerThan > 0 && minutes > fit.LongerThan {
		return fit.Penalty
	}
	return 0
}

func difficultyFit(level model.DifficultyLevel, grade int, band Band, w *DifficultyWeights) float64 {
	switch band {
	case BandElementary:
		switch level {
		case model.DifficultyBeginner:
			return w.Match
		case model.DifficultyAdvanced:
			return w.ElementaryAdvancedPenalty
		}
	case BandMiddle:
		switch level {
		case model.DifficultyIntermediate:
			return w.Match
		case model.DifficultyAdvanced:
			if grade < w.MiddleAdvancedBelowGrade {
				return w.MiddleAdvancedPenalty
			}
		}
	case BandHigh:
		switch level {
		case model.DifficultyIntermediate, model.DifficultyAdvanced:
			return w.Match
		case model.DifficultyBeginner:
			if grade > w.HighBeginnerAboveGrade {
				return w.HighBeginnerPenalty
			}
		}
	}
	return 0
}
