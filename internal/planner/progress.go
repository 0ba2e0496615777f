package planner

import (
	"edu_copilot_backend/internal/model"
	"math"
)

// ComputeProgress 完成百分比与计划状态
func ComputeProgress(acts []model.LearningActivity) (float64, model.ActivityStatus) {
	if len(acts) == 0 {
		return 0, model.StatusNotStarted
	}
	completed := 0
	for _, a := range acts {
		if a.Status == model.StatusCompleted {
			completed++
		}
	}

	progress := math.Round(float64(completed)/float64(len(acts))*10000) / 100
	switch completed {
	case 0:
		return progress, model.StatusNotStarted
	case len(acts):
		return progress, model.StatusCompleted
	default:
		return progress, model.StatusInProgress
	}
}

func ApplyProgress(plan *model.LearningPlan) {
	plan.ProgressPercentage, plan.Status = ComputeProgress(plan.Activities)
}
