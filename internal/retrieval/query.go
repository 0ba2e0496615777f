package retrieval

import (
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/ranking"
	"edu_copilot_backend/internal/search"
	"sort"
	"strconv"
	"strings"
)

var stylePhrases = map[model.LearningStyle]string{
	model.LearningStyleVisual:         "who learns best through videos, diagrams, and visual aids.",
	model.LearningStyleAuditory:       "who learns best through listening, discussions, and audio explanations.",
	model.LearningStyleReadingWriting: "who learns best through reading and writing activities.",
	model.LearningStyleKinesthetic:    "who learns best through hands-on activities and interactive exercises.",
	model.LearningStyleMixed:          "who benefits from a variety of learning approaches.",
}

// QueryText 根据学生画像拼出个性化向量检索的查询文本
func QueryText(p *model.StudentProfile, subject string, bands ranking.GradeBands) string {
	var sb strings.Builder

	g := p.GradeLevel
	if g > 0 {
		sb.WriteString("Educational content for a student in grade " + strconv.Itoa(g) + " ")
	}
	phrase, ok := stylePhrases[p.LearningStyle]
	if !ok {
		phrase = stylePhrases[model.LearningStyleMixed]
	}
	sb.WriteString(phrase + " ")

	interests := profileInterests(p)
	if len(interests) > 0 {
		sb.WriteString("Interested in " + strings.Join(interests, ", ") + ". ")
	}
	if subject != "" {
		sb.WriteString("Looking specifically for " + subject + " content. ")
		for _, in := range interests {
			if !strings.EqualFold(in, subject) {
				sb.WriteString("Connecting " + subject + " with " + in + ". ")
				break
			}
		}
	}

	switch bands.Band(g) {
	case ranking.BandElementary:
		sb.WriteString("Content should be engaging and simple for elementary students.")
	case ranking.BandMiddle:
		sb.WriteString("Content should be appropriate for middle school students.")
	case ranking.BandHigh:
		sb.WriteString("Content can be more in-depth for high school students.")
	}
	return strings.TrimSpace(sb.String())
}

func profileInterests(p *model.StudentProfile) []string {
	out := make([]string, 0, len(p.SubjectsOfInterest)+len(p.Interests))
	seen := make(map[string]bool)
	for _, list := range [][]string{p.SubjectsOfInterest, p.Interests} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// GradeWindow 返回检索允许的年级范围，限制在 [MinGrade, MaxGrade]，但始终包含 g 本身
func GradeWindow(g int, bands ranking.GradeBands) []int {
	lo, hi := g-2, g+2
	switch bands.Band(g) {
	case ranking.BandUnknown, ranking.BandElementary:
		lo, hi = g-1, g+1
	case ranking.BandMiddle:
		hi = g + 1
	}
	if lo < bands.MinGrade {
		lo = bands.MinGrade
	}
	if hi > bands.MaxGrade {
		hi = bands.MaxGrade
	}

	out := make([]int, 0, hi-lo+2)
	hasG := false
	for n := lo; n <= hi; n++ {
		out = append(out, n)
		if n == g {
			hasG = true
		}
	}
	if !hasG {
		out = append(out, g)
		sort.Ints(out)
	}
	return out
}

// DifficultyBand 年级对应的可接受难度
func DifficultyBand(g int, bands ranking.GradeBands) []model.DifficultyLevel {
	switch {
	case g <= 3:
		return []model.DifficultyLevel{model.DifficultyBeginner}
	case g <= bands.Elementary:
		return []model.DifficultyLevel{model.DifficultyBeginner, model.DifficultyIntermediate}
	case g <= bands.Middle:
		if g >= 7 {
			return []model.DifficultyLevel{model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced}
		}
		return []model.DifficultyLevel{model.DifficultyBeginner, model.DifficultyIntermediate}
	default:
		return []model.DifficultyLevel{model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced}
	}
}

// BuildFilter 个性化阶段与直接检索阶段共用的过滤条件；年级未知时只按学科过滤
func BuildFilter(subject string, g int, bands ranking.GradeBands) string {
	parts := []string{subjectFilter(subject)}
	if g > 0 {
		parts = append(parts, search.AnyEqInt("grade_level", GradeWindow(g, bands)))

		levels := DifficultyBand(g, bands)
		names := make([]string, 0, len(levels))
		for _, l := range levels {
			names = append(names, string(l))
		}
		parts = append(parts, search.EqAny("difficulty_level", names))
	}
	return search.And(parts...)
}

func subjectFilter(subject string) string {
	if subject == "" {
		return ""
	}
	return search.Eq("subject", subject)
}
