package model

import "time"

type ContentType string

const (
	ContentTypeVideo       ContentType = "video"
	ContentTypeArticle     ContentType = "article"
	ContentTypeInteractive ContentType = "interactive"
	ContentTypeWorksheet   ContentType = "worksheet"
	ContentTypeQuiz        ContentType = "quiz"
	ContentTypeLesson      ContentType = "lesson"
	ContentTypeActivity    ContentType = "activity"
	ContentTypeAudio       ContentType = "audio"
	ContentTypeOther       ContentType = "other"
)

var validContentTypes = map[ContentType]bool{
	ContentTypeVideo:       true,
	ContentTypeArticle:     true,
	ContentTypeInteractive: true,
	ContentTypeWorksheet:   true,
	ContentTypeQuiz:        true,
	ContentTypeLesson:      true,
	ContentTypeActivity:    true,
	ContentTypeAudio:       true,
	ContentTypeOther:       true,
}

func (t ContentType) Valid() bool {
	return validContentTypes[t]
}

type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

func (d DifficultyLevel) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

const (
	EmbeddingDimension     = 1536
	DefaultContentDuration = 30
	DefaultContentSource   = "Azure AI Search"
)

// ContentItem 来自搜索索引的学习资源，只读
type ContentItem struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	ContentType     ContentType     `json:"contentType"`
	Subject         string          `json:"subject"`
	DifficultyLevel DifficultyLevel `json:"difficultyLevel"`
	GradeLevel      []int           `json:"gradeLevel"`
	Topics          []string        `json:"topics"`
	Keywords        []string        `json:"keywords"`
	DurationMinutes int             `json:"durationMinutes"`
	URL             string          `json:"url"`
	Embedding       []float32       `json:"-"`
	Source          string          `json:"source"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	SearchScore     float64         `json:"searchScore,omitempty"`
}

func (c *ContentItem) HasGrade(g int) bool {
	for _, x := range c.GradeLevel {
		if x == g {
			return true
		}
	}
	return false
}
