package contextbuild

import (
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/utils"
)

type SourceKind string

const (
	SourceDiscussion  SourceKind = "discussion"
	SourceChatHistory SourceKind = "chat_history"
	SourceRetrieval   SourceKind = "retrieval"
)

// assemblyOrder is the fixed concatenation order of context sections.
var assemblyOrder = []SourceKind{SourceDiscussion, SourceChatHistory, SourceRetrieval}

// BudgetPolicy is immutable process-wide configuration. Per-source ceilings
// bound each section before concatenation; MaxTotal bounds the combined text
// as a safety net when every source saturates its own ceiling.
type BudgetPolicy struct {
	MaxTotal     int
	MaxPerSource map[SourceKind]int
}

func DefaultBudgetPolicy() BudgetPolicy {
	return BudgetPolicy{
		MaxTotal: 24000,
		MaxPerSource: map[SourceKind]int{
			SourceDiscussion:  12000,
			SourceChatHistory: 8000,
			SourceRetrieval:   8000,
		},
	}
}

func LoadBudgetPolicyFromEnv(log *logger.Logger) BudgetPolicy {
	def := DefaultBudgetPolicy()
	policy := BudgetPolicy{
		MaxTotal: utils.GetEnvAsInt("CONTEXT_MAX_TOTAL", def.MaxTotal, log),
		MaxPerSource: map[SourceKind]int{
			SourceDiscussion:  utils.GetEnvAsInt("CONTEXT_MAX_DISCUSSION", def.MaxPerSource[SourceDiscussion], log),
			SourceChatHistory: utils.GetEnvAsInt("CONTEXT_MAX_CHAT_HISTORY", def.MaxPerSource[SourceChatHistory], log),
			SourceRetrieval:   utils.GetEnvAsInt("CONTEXT_MAX_RETRIEVAL", def.MaxPerSource[SourceRetrieval], log),
		},
	}
	if err := policy.Validate(); err != nil {
		if log != nil {
			log.Warn("Invalid context budget policy, falling back to defaults", "error", err)
		}
		return def
	}
	return policy
}

func (p BudgetPolicy) Validate() error {
	if p.MaxTotal < 0 {
		return errNegativeTotal
	}
	for kind, ceiling := range p.MaxPerSource {
		if ceiling < 0 {
			return &policyError{kind: kind, reason: "negative ceiling"}
		}
		if ceiling > p.MaxTotal {
			return &policyError{kind: kind, reason: "ceiling exceeds max total"}
		}
	}
	return nil
}

func (p BudgetPolicy) ceilingFor(kind SourceKind) int {
	return p.MaxPerSource[kind]
}

type policyError struct {
	kind   SourceKind
	reason string
}

func (e *policyError) Error() string {
	return "budget policy: " + string(e.kind) + ": " + e.reason
}

var errNegativeTotal = &policyError{kind: "total", reason: "negative ceiling"}
