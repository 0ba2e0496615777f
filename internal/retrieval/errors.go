package retrieval

import (
	"fmt"
	"time"
)

type Stage string

const (
	StagePersonalized Stage = "personalized"
	StageDirect       Stage = "direct"
	StageSimplified   Stage = "simplified"
	StageUnfiltered   Stage = "unfiltered"
)

type StageErrorCode string

const (
	StageErrorEmbedFailed  StageErrorCode = "embed_failed"
	StageErrorSearchFailed StageErrorCode = "search_failed"
	StageErrorTimeout      StageErrorCode = "timeout"
	StageErrorEmpty        StageErrorCode = "empty"
)

// StageError 某个检索阶段失败或无结果，检索会继续下一阶段
type StageError struct {
	Stage Stage
	Code  StageErrorCode
	Cause error
}

func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("retrieval stage %s: %s: %v", e.Stage, e.Code, e.Cause)
	}
	return fmt.Sprintf("retrieval stage %s: %s", e.Stage, e.Code)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// StageOutcome 单个阶段的执行结果；Err 为 nil 表示命中
type StageOutcome struct {
	Stage    Stage
	Count    int
	Err      *StageError
	Duration time.Duration
}
