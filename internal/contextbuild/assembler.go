package contextbuild

import (
	"context"
	"strings"

	"github.com/yungbote/argo-backend/internal/logger"
)

// sectionSeparator joins non-empty sections. It is not charged against any
// per-source ceiling; the global pass charges it against MaxTotal.
const sectionSeparator = "\n\n"

type Section struct {
	Kind      SourceKind `json:"kind"`
	Text      string     `json:"text"`
	Truncated bool       `json:"truncated"`
}

type AssembledContext struct {
	Sections       []Section `json:"sections"`
	CombinedText   string    `json:"combined_text"`
	TotalTruncated bool      `json:"total_truncated"`
}

type Match struct {
	ID    string
	Text  string
	Score float64
}

// The three context sources are a closed set. Each produces raw text on
// demand; the underlying data belongs to the external store.
type DiscussionSource interface {
	Fetch(ctx context.Context, discussionID string) (string, error)
}

type ChatHistorySource interface {
	Fetch(ctx context.Context, conversationID string, window int) (string, error)
}

type RetrievalSource interface {
	Query(ctx context.Context, text string, k int) ([]Match, error)
}

type Request struct {
	DiscussionID   string
	ConversationID string
	HistoryWindow  int
	Query          string
	RetrievalK     int
}

type Assembler struct {
	log        *logger.Logger
	policy     BudgetPolicy
	discussion DiscussionSource
	history    ChatHistorySource
	retrieval  RetrievalSource
}

func NewAssembler(log *logger.Logger, policy BudgetPolicy, discussion DiscussionSource, history ChatHistorySource, retrieval RetrievalSource) *Assembler {
	return &Assembler{
		log:        log.With("component", "ContextAssembler"),
		policy:     policy,
		discussion: discussion,
		history:    history,
		retrieval:  retrieval,
	}
}

// Assemble builds one bounded context from the configured sources. A failing
// source contributes an empty section and is logged; it never aborts the
// others. Truncation runs twice: per source against its own ceiling, then
// globally against MaxTotal once the sections are joined.
func (a *Assembler) Assemble(ctx context.Context, req Request) AssembledContext {
	sections := make([]Section, 0, len(assemblyOrder))
	for _, kind := range assemblyOrder {
		raw := a.fetchSection(ctx, kind, req)
		text, truncated := Truncate(raw, a.policy.ceilingFor(kind))
		sections = append(sections, Section{Kind: kind, Text: text, Truncated: truncated})
	}

	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	combined, totalTruncated := Truncate(strings.Join(parts, sectionSeparator), a.policy.MaxTotal)

	return AssembledContext{
		Sections:       sections,
		CombinedText:   combined,
		TotalTruncated: totalTruncated,
	}
}

func (a *Assembler) fetchSection(ctx context.Context, kind SourceKind, req Request) string {
	switch kind {
	case SourceDiscussion:
		if a.discussion == nil || req.DiscussionID == "" {
			return ""
		}
		text, err := a.discussion.Fetch(ctx, req.DiscussionID)
		if err != nil {
			a.log.Warn("Discussion source unavailable, continuing with empty section", "discussion_id", req.DiscussionID, "error", err)
			return ""
		}
		return text
	case SourceChatHistory:
		if a.history == nil || req.ConversationID == "" {
			return ""
		}
		text, err := a.history.Fetch(ctx, req.ConversationID, req.HistoryWindow)
		if err != nil {
			a.log.Warn("Chat history source unavailable, continuing with empty section", "conversation_id", req.ConversationID, "error", err)
			return ""
		}
		return text
	case SourceRetrieval:
		if a.retrieval == nil || req.Query == "" {
			return ""
		}
		matches, err := a.retrieval.Query(ctx, req.Query, req.RetrievalK)
		if err != nil {
			a.log.Warn("Retrieval source unavailable, continuing with empty section", "error", err)
			return ""
		}
		texts := make([]string, 0, len(matches))
		for _, m := range matches {
			if m.Text != "" {
				texts = append(texts, m.Text)
			}
		}
		return strings.Join(texts, "\n")
	}
	return ""
}
