package retrieval

import (
	"context"
	"edu_copilot_backend/internal/model"
	"edu_copilot_backend/internal/search"
	"edu_copilot_backend/pkg/logger"
	"errors"
	"strings"

	"go.uber.org/zap"
)

const defaultPerGrade = 3

var mediaContentTypes = map[string][]model.ContentType{
	"video":       {model.ContentTypeVideo},
	"audio":       {model.ContentTypeAudio},
	"text":        {model.ContentTypeArticle, model.ContentTypeWorksheet},
	"interactive": {model.ContentTypeInteractive, model.ContentTypeQuiz, model.ContentTypeActivity},
}

// MediaContentTypes 媒体类型到内容类型的映射，未知媒体类型返回 nil
func MediaContentTypes(media string) []model.ContentType {
	return mediaContentTypes[strings.ToLower(strings.TrimSpace(media))]
}

func (r *Retriever) lookup(ctx context.Context, op string, req search.Request) []model.ContentItem {
	ctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	if req.Select == nil {
		req.Select = selectFields
	}
	docs, err := r.searcher.Search(ctx, req)
	if err != nil {
		logger.Log.Warn("Content lookup failed", zap.String("op", op), zap.String("filter", req.Filter), zap.Error(err))
		return []model.ContentItem{}
	}
	return parseDocuments(docs)
}

// ByID 按主键读取单条内容
func (r *Retriever) ByID(ctx context.Context, id string) (*model.ContentItem, bool) {
	if strings.TrimSpace(id) == "" {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, r.stageTimeout)
	defer cancel()

	doc, err := r.searcher.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, search.ErrNotFound) {
			logger.Log.Warn("Content lookup by id failed", zap.String("id", id), zap.Error(err))
		}
		return nil, false
	}
	res := ParseContent(doc)
	if res.Item == nil {
		logger.Log.Warn("Skipping content document", zap.String("id", id), zap.String("reason", res.Skipped))
		return nil, false
	}
	return res.Item, true
}

// ByTopics 按主题检索，可选按年级和难度收窄
func (r *Retriever) ByTopics(ctx context.Context, topics []string, grade int, difficulty model.DifficultyLevel, k int) []model.ContentItem {
	topics = trimEmpty(topics)
	if len(topics) == 0 {
		return []model.ContentItem{}
	}
	if k <= 0 {
		k = r.defaultK
	}

	parts := []string{search.AnyEqString("topics", topics)}
	if grade > 0 {
		parts = append(parts, search.AnyEqInt("grade_level", []int{grade}))
	}
	if difficulty != "" {
		parts = append(parts, search.Eq("difficulty_level", string(difficulty)))
	}
	return r.lookup(ctx, "by_topics", search.Request{Query: "*", Filter: search.And(parts...), Top: k})
}

// Similar 查找与指定内容相近的同学科内容，不包含其本身
func (r *Retriever) Similar(ctx context.Context, id string, k int) []model.ContentItem {
	source, ok := r.ByID(ctx, id)
	if !ok {
		return []model.ContentItem{}
	}
	if k <= 0 {
		k = r.defaultK
	}

	vec := source.Embedding
	if len(vec) == 0 {
		text := strings.TrimSpace(source.Title + " " + source.Description + " " + strings.Join(source.Topics, " "))
		embedCtx, cancel := context.WithTimeout(ctx, r.stageTimeout)
		var err error
		vec, err = r.embedder.Embed(embedCtx, text)
		cancel()
		if err != nil || len(vec) == 0 {
			logger.Log.Warn("Embedding for similar content failed", zap.String("id", id), zap.Error(err))
			return []model.ContentItem{}
		}
	}

	filter := search.And(search.Ne("id", source.ID), subjectFilter(source.Subject))
	return r.lookup(ctx, "similar", search.Request{Vector: vec, Filter: filter, Top: k})
}

// Progression 按年级列出某主题的内容，只返回有结果的年级
func (r *Retriever) Progression(ctx context.Context, subject, topic string, startGrade, endGrade, perGrade int) map[int][]model.ContentItem {
	out := make(map[int][]model.ContentItem)
	if startGrade <= 0 || endGrade < startGrade {
		return out
	}
	if perGrade <= 0 {
		perGrade = defaultPerGrade
	}

	for g := startGrade; g <= endGrade; g++ {
		if ctx.Err() != nil {
			break
		}
		filter := search.And(
			subjectFilter(subject),
			search.AnyEqString("topics", trimEmpty([]string{topic})),
			search.AnyEqInt("grade_level", []int{g}),
		)
		items := r.lookup(ctx, "progression", search.Request{Query: "*", Filter: filter, Top: perGrade})
		if len(items) > 0 {
			out[g] = items
		}
	}
	return out
}

// ByMediaType 按媒体类型检索；未知媒体类型返回空
func (r *Retriever) ByMediaType(ctx context.Context, media, subject string, k int) []model.ContentItem {
	types := MediaContentTypes(media)
	if len(types) == 0 {
		return []model.ContentItem{}
	}
	if k <= 0 {
		k = r.defaultK
	}

	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	filter := search.And(subjectFilter(subject), search.EqAny("content_type", names))
	return r.lookup(ctx, "by_media_type", search.Request{Query: "*", Filter: filter, Top: k})
}

func trimEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
