package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/argo-backend/internal/analysiscache"
	"github.com/yungbote/argo-backend/internal/apierr"
	"github.com/yungbote/argo-backend/internal/clients/openai"
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/repos"
	"github.com/yungbote/argo-backend/internal/types"
)

const analyzeSystemPrompt = "You analyze conversations, infer tone, extract durable facts, and summarize. Output JSON only."

const defaultAnalysisWindow = 80

type ContactListItem struct {
	ContactID          string     `json:"contact_id"`
	DisplayName        string     `json:"display_name"`
	LastMessageTS      *time.Time `json:"last_message_ts,omitempty"`
	LastMessageSnippet string     `json:"last_message_snippet,omitempty"`
	TotalMessages      int64      `json:"total_messages"`
}

type ContactDetail struct {
	ContactID   string                  `json:"contact_id"`
	DisplayName string                  `json:"display_name"`
	Messages    []*types.ContactMessage `json:"messages"`
}

type AnalysisResult struct {
	ContactID      string   `json:"contact_id"`
	DisplayName    string   `json:"display_name"`
	ToneSummary    string   `json:"tone_summary"`
	Facts          []string `json:"facts"`
	HistorySummary string   `json:"history_summary"`
}

// AnalysisService produces per-contact conversation analysis. Results are
// expensive (two model calls) so they are memoized through the analysis
// cache; data refreshes invalidate them via the invalidation bus.
type AnalysisService struct {
	log      *logger.Logger
	contacts repos.ContactRepo
	messages repos.ContactMessageRepo
	rag      *RAGService
	ai       openai.Client
	cache    *analysiscache.Cache
}

func NewAnalysisService(
	log *logger.Logger,
	contacts repos.ContactRepo,
	messages repos.ContactMessageRepo,
	rag *RAGService,
	ai openai.Client,
	cache *analysiscache.Cache,
) *AnalysisService {
	return &AnalysisService{
		log:      log.With("service", "AnalysisService"),
		contacts: contacts,
		messages: messages,
		rag:      rag,
		ai:       ai,
		cache:    cache,
	}
}

func (s *AnalysisService) ListContacts(ctx context.Context) ([]ContactListItem, error) {
	contacts, err := s.contacts.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	items := make([]ContactListItem, 0, len(contacts))
	for _, c := range contacts {
		item := ContactListItem{ContactID: c.ID, DisplayName: c.DisplayName}
		last, err := s.messages.LastByContact(ctx, nil, c.ID)
		if err != nil {
			s.log.Warn("Failed to load last message for contact", "contact_id", c.ID, "error", err)
		} else if last != nil {
			ts := last.SentAt
			item.LastMessageTS = &ts
			item.LastMessageSnippet = snip(last.Text, 96)
		}
		count, err := s.messages.CountByContact(ctx, nil, c.ID)
		if err == nil {
			item.TotalMessages = count
		}
		items = append(items, item)
	}
	// Most recently active first.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && laterThan(items[j].LastMessageTS, items[j-1].LastMessageTS); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	return items, nil
}

func (s *AnalysisService) GetContact(ctx context.Context, contactID string) (*ContactDetail, error) {
	contact, err := s.contacts.GetByID(ctx, nil, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apierr.NotFound(fmt.Errorf("contact not found"))
	}
	msgs, err := s.messages.ListByContact(ctx, nil, contactID)
	if err != nil {
		return nil, err
	}
	return &ContactDetail{ContactID: contact.ID, DisplayName: contact.DisplayName, Messages: msgs}, nil
}

// Analyze returns the memoized analysis for a contact, computing it on a
// cache miss. Concurrent misses for the same contact share one computation.
func (s *AnalysisService) Analyze(ctx context.Context, contactID string, maxMessages int) (*AnalysisResult, error) {
	contact, err := s.contacts.GetByID(ctx, nil, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apierr.NotFound(fmt.Errorf("contact not found"))
	}
	if maxMessages <= 0 {
		maxMessages = defaultAnalysisWindow
	}

	key := analysiscache.Key(contactID, maxMessages)
	value, err := s.cache.GetOrCompute(ctx, key, func(computeCtx context.Context) (any, error) {
		return s.computeAnalysis(computeCtx, contact, maxMessages)
	})
	if err != nil {
		return nil, apierr.New(502, apierr.CodeCacheCompute, err)
	}
	result, ok := value.(*AnalysisResult)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value type %T", value)
	}
	return result, nil
}

func (s *AnalysisService) computeAnalysis(ctx context.Context, contact *types.Contact, maxMessages int) (*AnalysisResult, error) {
	recentMsgs, err := s.messages.ListRecentByContact(ctx, nil, contact.ID, maxMessages)
	if err != nil {
		return nil, err
	}
	recent := formatContactMessages(recentMsgs)

	// Semantic context: query with the latest few messages; a failing
	// retrieval source degrades to recency-only analysis.
	ragContext := ""
	if len(recentMsgs) > 0 {
		tail := recentMsgs
		if len(tail) > 3 {
			tail = tail[len(tail)-3:]
		}
		queries := make([]string, 0, len(tail))
		for _, m := range tail {
			queries = append(queries, m.Text)
		}
		matches, err := s.rag.QueryByContact(ctx, contact.ID, strings.Join(queries, "\n"), 12)
		if err != nil {
			s.log.Warn("Retrieval unavailable during analysis, continuing without it", "contact_id", contact.ID, "error", err)
		} else {
			texts := make([]string, 0, len(matches))
			for _, m := range matches {
				texts = append(texts, m.Text)
			}
			ragContext = strings.Join(texts, "\n")
		}
	}

	user := fmt.Sprintf(`Guidelines:
- Tone: how the USER typically writes to this person (casual/formal/emoji/length).
- Facts: only durable info (preferences, schedules, contact details, commitments).
- History summary: 3-5 sentences, note any promises with dates if present.

Recent window (newest last):
%s

Retrieved context (semantic):
%s`, recent, ragContext)

	obj, err := s.ai.GenerateJSON(ctx, analyzeSystemPrompt, user, "contact_analysis", analysisSchema())
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		ContactID:   contact.ID,
		DisplayName: contact.DisplayName,
	}
	if v, ok := obj["tone_summary"].(string); ok {
		result.ToneSummary = v
	}
	if v, ok := obj["history_summary"].(string); ok {
		result.HistorySummary = v
	}
	if raw, ok := obj["facts"].([]any); ok {
		for _, f := range raw {
			if fs, ok := f.(string); ok {
				result.Facts = append(result.Facts, fs)
			}
		}
	}
	return result, nil
}

func analysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tone_summary":    map[string]any{"type": "string"},
			"facts":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"history_summary": map[string]any{"type": "string"},
		},
		"required":             []string{"tone_summary", "facts", "history_summary"},
		"additionalProperties": false,
	}
}

func snip(text string, n int) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(cleaned)
	if len(runes) <= n {
		return cleaned
	}
	return string(runes[:n]) + "…"
}

func laterThan(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
