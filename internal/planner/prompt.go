package planner

import (
	"edu_copilot_backend/internal/model"
	"fmt"
	"strconv"
	"strings"
)

const (
	PlanSystemPrompt = "You are an AI educational assistant that creates personalized learning plans."
	PathSystemPrompt = "You are an educational AI that creates comprehensive learning paths."
)

var styleDescriptions = map[model.LearningStyle]string{
	model.LearningStyleVisual: `Visual learners learn best through seeing. They prefer:
- Videos and demonstrations
- Diagrams, charts, and graphs
- Visual presentations and infographics
When planning activities for visual learners, prioritize video content, visual exercises, and content with diagrams and illustrations.`,
	model.LearningStyleAuditory: `Auditory learners learn best through hearing. They prefer:
- Lectures and audio recordings
- Group discussions and verbal instructions
- Content that can be read aloud or discussed
When planning activities for auditory learners, prioritize video lectures, audio content, and activities that involve discussion.`,
	model.LearningStyleReadingWriting: `Reading/Writing learners learn best through text. They prefer:
- Articles and books
- Written instructions and explanations
- Note-taking and writing summaries
When planning activities for reading/writing learners, prioritize articles, text-based content, and activities that involve reading and writing.`,
	model.LearningStyleKinesthetic: `Kinesthetic learners learn best through doing. They prefer:
- Hands-on activities and experiments
- Interactive simulations and games
- Practical applications
When planning activities for kinesthetic learners, prioritize interactive content, simulations, and activities that involve active participation.`,
	model.LearningStyleMixed: `Mixed learning style students benefit from variety. They prefer:
- A combination of different content types
- Multimodal learning experiences
- Variety in presentation and activities
When planning activities for mixed learning style students, balance visual, auditory, reading/writing, and kinesthetic elements.`,
}

// StyleDescription 学习风格说明，写入提示词
func StyleDescription(style model.LearningStyle) string {
	if d, ok := styleDescriptions[style]; ok {
		return d
	}
	return styleDescriptions[model.LearningStyleMixed]
}

func orDefault(list []string, def string) string {
	if len(list) == 0 {
		return def
	}
	return strings.Join(list, ", ")
}

func gradeText(g int) string {
	if g <= 0 {
		return "Unknown"
	}
	return strconv.Itoa(g)
}

func styleText(style model.LearningStyle) string {
	if style == "" {
		return string(model.LearningStyleMixed)
	}
	return string(style)
}

func writeResources(sb *strings.Builder, ranked []model.ContentItem) {
	if len(ranked) == 0 {
		sb.WriteString("No resources were found. Design self-guided activities and leave content_id null.\n")
		return
	}
	for i, c := range ranked {
		grades := make([]string, 0, len(c.GradeLevel))
		for _, g := range c.GradeLevel {
			grades = append(grades, strconv.Itoa(g))
		}
		fmt.Fprintf(sb, "Content %d:\n", i+1)
		fmt.Fprintf(sb, "- ID: %s\n", c.ID)
		fmt.Fprintf(sb, "- Title: %s\n", c.Title)
		fmt.Fprintf(sb, "- Type: %s\n", c.ContentType)
		fmt.Fprintf(sb, "- Difficulty: %s\n", c.DifficultyLevel)
		fmt.Fprintf(sb, "- Subject: %s\n", c.Subject)
		fmt.Fprintf(sb, "- Grade Level(s): %s\n", orDefault(grades, "Not specified"))
		fmt.Fprintf(sb, "- Keywords: %s\n", orDefault(c.Keywords, "Not specified"))
		fmt.Fprintf(sb, "- Duration: %d minutes\n", c.DurationMinutes)
		fmt.Fprintf(sb, "- Description: %s\n", c.Description)
		fmt.Fprintf(sb, "- URL: %s\n\n", c.URL)
	}
}

// PlanPrompt 按天生成学习计划的用户提示词
func PlanPrompt(p *model.StudentProfile, subject string, ranked []model.ContentItem, days int, weekly bool) string {
	weekText, periodNote := "", ""
	if weekly {
		weekText, periodNote = "Weekly ", " (One Week)"
	}

	var sb strings.Builder
	sb.WriteString("You are creating a personalized learning plan based on educational content from the search index.\n\n")
	sb.WriteString("STUDENT PROFILE:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", p.FullName)
	fmt.Fprintf(&sb, "- Grade Level: %s\n", gradeText(p.GradeLevel))
	fmt.Fprintf(&sb, "- Learning Style: %s\n", styleText(p.LearningStyle))
	fmt.Fprintf(&sb, "- Subjects of Interest: %s\n", orDefault(p.SubjectsOfInterest, "General learning"))
	fmt.Fprintf(&sb, "- Areas for Improvement: %s\n\n", orDefault(p.AreasForImprovement, "Not specified"))
	sb.WriteString("LEARNING STYLE INFORMATION:\n")
	sb.WriteString(StyleDescription(p.LearningStyle) + "\n\n")
	fmt.Fprintf(&sb, "SUBJECT TO FOCUS ON: %s\n", subject)
	fmt.Fprintf(&sb, "LEARNING PERIOD DURATION: %d days%s\n\n", days, periodNote)
	sb.WriteString("AVAILABLE LEARNING RESOURCES:\n")
	writeResources(&sb, ranked)

	fmt.Fprintf(&sb, "Create a %slearning plan over %d days that progresses from foundational to more advanced material.\n", weekText, days)
	sb.WriteString("Every day must have at least one activity. Aim for 1-3 activities and 30-60 minutes per day.\n")
	sb.WriteString("Choose resources that match the student's grade level, learning style, difficulty, and improvement areas.\n")
	sb.WriteString("Use the resource's duration, reference it by its exact ID and URL, and explain the learning benefit.\n\n")
	sb.WriteString("Return ONLY a JSON object in this format:\n")
	fmt.Fprintf(&sb, `{
  "title": "%sLearning Plan for %s",
  "description": "Overall plan description",
  "subject": "%s",
  "topics": ["topic1", "topic2"],
  "activities": [
    {
      "title": "Activity Title",
      "description": "What the student should do",
      "content_id": "<ID of content resource>",
      "duration_minutes": 20,
      "day": <day number 1-%d>,
      "order": <order within the day>,
      "content_url": "<URL of the content>",
      "learning_benefit": "How this activity addresses the student's needs"
    }
  ]
}`, weekText, subject, subject, days)
	return sb.String()
}

// PathPrompt 按周组织的进阶学习路径提示词
func PathPrompt(p *model.StudentProfile, subject string, ranked []model.ContentItem, weeks int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are creating a %d-week learning path for a grade %s student with %s learning style who wants to master %s.\n\n",
		weeks, gradeText(p.GradeLevel), styleText(p.LearningStyle), subject)
	sb.WriteString("STUDENT PROFILE:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", p.FullName)
	fmt.Fprintf(&sb, "- Subjects of Interest: %s\n\n", orDefault(p.SubjectsOfInterest, "General learning"))
	sb.WriteString("LEARNING STYLE INFORMATION:\n")
	sb.WriteString(StyleDescription(p.LearningStyle) + "\n\n")

	levels := []model.DifficultyLevel{model.DifficultyBeginner, model.DifficultyIntermediate, model.DifficultyAdvanced}
	for _, level := range levels {
		n := 0
		for _, c := range ranked {
			if c.DifficultyLevel != level || n >= 5 {
				continue
			}
			if n == 0 {
				fmt.Fprintf(&sb, "%s LEVEL RESOURCES:\n", strings.ToUpper(string(level)))
			}
			n++
			fmt.Fprintf(&sb, "- ID: %s | Title: %s | Type: %s | Topics: %s | Description: %s\n",
				c.ID, c.Title, c.ContentType, orDefault(c.Topics, "General"), c.Description)
		}
		if n > 0 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString("Build weekly themes that progress from beginner to advanced content. ")
	sb.WriteString("Plan activities for Monday through Friday plus a weekend review, with at least one assessment per week. ")
	sb.WriteString("Use resource IDs when an activity is based on a resource, otherwise set content_id to null. ")
	sb.WriteString("Activities should take 15-45 minutes.\n\n")
	sb.WriteString("Return ONLY a JSON object in this format:\n")
	fmt.Fprintf(&sb, `{
  "title": "Master %s Fundamentals",
  "description": "Path description",
  "overall_goal": "Clear statement of learning objectives",
  "weeks": [
    {
      "week_number": 1,
      "theme": "Introduction",
      "goal": "Goal for this week",
      "days": [
        {"day": "Monday", "activities": [
          {"title": "Activity Title", "description": "Instructions", "content_id": "ID or null", "type": "video", "duration_minutes": 30}
        ]}
      ],
      "weekend_activity": {"title": "Weekend Review", "description": "Review", "duration_minutes": 45},
      "skills": ["Skill 1"],
      "assessment": "Assessment description"
    }
  ]
}`, subject)
	return sb.String()
}
