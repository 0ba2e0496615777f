package ranking

import "edu_copilot_backend/internal/model"

var styleMatchTypes = map[model.LearningStyle][]model.ContentType{
	model.LearningStyleVisual:         {model.ContentTypeVideo, model.ContentTypeInteractive},
	model.LearningStyleAuditory:       {model.ContentTypeVideo, model.ContentTypeAudio},
	model.LearningStyleReadingWriting: {model.ContentTypeArticle, model.ContentTypeWorksheet, model.ContentTypeLesson},
	model.LearningStyleKinesthetic:    {model.ContentTypeInteractive, model.ContentTypeActivity, model.ContentTypeQuiz},
}

// StyleMatchTypes 与学习风格直接匹配、可获得风格加分的内容类型；mixed 没有
func StyleMatchTypes(style model.LearningStyle) []model.ContentType {
	return styleMatchTypes[style]
}

// GroupPriorityTypes 按学习风格分组推荐时的优先类型
func GroupPriorityTypes(style model.LearningStyle) []model.ContentType {
	if types, ok := styleMatchTypes[style]; ok {
		return types
	}
	return []model.ContentType{
		model.ContentTypeVideo,
		model.ContentTypeArticle,
		model.ContentTypeInteractive,
		model.ContentTypeLesson,
		model.ContentTypeQuiz,
	}
}

var preferredTypes = map[model.LearningStyle][]model.ContentType{
	model.LearningStyleVisual: {
		model.ContentTypeVideo, model.ContentTypeInteractive, model.ContentTypeLesson,
		model.ContentTypeArticle, model.ContentTypeQuiz,
	},
	model.LearningStyleAuditory: {
		model.ContentTypeVideo, model.ContentTypeAudio, model.ContentTypeLesson,
		model.ContentTypeInteractive, model.ContentTypeArticle,
	},
	model.LearningStyleReadingWriting: {
		model.ContentTypeArticle, model.ContentTypeWorksheet, model.ContentTypeLesson,
		model.ContentTypeQuiz, model.ContentTypeVideo,
	},
	model.LearningStyleKinesthetic: {
		model.ContentTypeInteractive, model.ContentTypeActivity, model.ContentTypeQuiz,
		model.ContentTypeVideo, model.ContentTypeLesson,
	},
	model.LearningStyleMixed: {
		model.ContentTypeVideo, model.ContentTypeArticle, model.ContentTypeInteractive,
		model.ContentTypeLesson, model.ContentTypeQuiz, model.ContentTypeActivity,
	},
}

// PreferredTypes 检索阶段按学习风格挑选时的类型偏好顺序
func PreferredTypes(style model.LearningStyle) []model.ContentType {
	if types, ok := preferredTypes[style]; ok {
		return types
	}
	return preferredTypes[model.LearningStyleMixed]
}

func containsType(types []model.ContentType, t model.ContentType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}
