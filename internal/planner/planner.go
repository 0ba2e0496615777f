package planner

import (
	"context"
	"edu_copilot_backend/pkg/monitoring"
	"strings"
	"sync"
	"time"
)

type Completer interface {
	Complete(ctx context.Context, system, user string, jsonMode bool) (string, error)
}

// ContentIDPolicy 模型返回未知 content_id 时的处理方式
type ContentIDPolicy string

const (
	PolicySubstitute ContentIDPolicy = "substitute"
	PolicyNull       ContentIDPolicy = "null"
)

// ParseContentIDPolicy 未知取值按 substitute 处理
func ParseContentIDPolicy(s string) ContentIDPolicy {
	if ContentIDPolicy(strings.ToLower(strings.TrimSpace(s))) == PolicyNull {
		return PolicyNull
	}
	return PolicySubstitute
}

const (
	defaultDays             = 7
	defaultActivityDuration = 20
	challengeDuration       = 30
)

// Assembler 调用大模型生成学习计划，并把输出修复成完整可用的计划
type Assembler struct {
	completer Completer
	Now       func() time.Time

	mu     sync.RWMutex
	policy ContentIDPolicy
}

func NewAssembler(completer Completer, policy string) *Assembler {
	return &Assembler{
		completer: completer,
		Now:       time.Now,
		policy:    ParseContentIDPolicy(policy),
	}
}

// SetContentIDPolicy 配置热加载时调用
func (a *Assembler) SetContentIDPolicy(policy string) {
	a.mu.Lock()
	a.policy = ParseContentIDPolicy(policy)
	a.mu.Unlock()
}

func (a *Assembler) ContentIDPolicy() ContentIDPolicy {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.policy
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func countRepair(kind string) {
	monitoring.PlanRepairs.WithLabelValues(kind).Inc()
}
