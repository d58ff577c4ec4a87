package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/yungbote/argo-backend/internal/clients/openai"
	"github.com/yungbote/argo-backend/internal/clients/qdrant"
	"github.com/yungbote/argo-backend/internal/contextbuild"
	"github.com/yungbote/argo-backend/internal/logger"
)

// RAGService indexes conversation text into the vector store and retrieves
// semantically similar snippets for context assembly. It implements the
// retrieval context source.
type RAGService struct {
	log    *logger.Logger
	ai     openai.Client
	vector qdrant.VectorStore
}

func NewRAGService(log *logger.Logger, ai openai.Client, vector qdrant.VectorStore) *RAGService {
	return &RAGService{
		log:    log.With("service", "RAGService"),
		ai:     ai,
		vector: vector,
	}
}

// AddMessage embeds and indexes one discussion message. Failures are the
// caller's to decide on; chat flow treats indexing as best-effort.
func (s *RAGService) AddMessage(ctx context.Context, discussionID, text, role string) error {
	if s.vector == nil {
		return fmt.Errorf("vector store unavailable")
	}
	embs, err := s.ai.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("embed message: %w", err)
	}
	vec := qdrant.Vector{
		ID:     fmt.Sprintf("%s-%s", discussionID, contentHash(text)),
		Values: embs[0],
		Payload: map[string]any{
			"discussion_id": discussionID,
			"role":          role,
			"text":          text,
		},
	}
	return s.vector.Upsert(ctx, []qdrant.Vector{vec})
}

// Query returns the top-k most similar indexed snippets for the given text.
func (s *RAGService) Query(ctx context.Context, text string, k int) ([]contextbuild.Match, error) {
	if s.vector == nil {
		return nil, fmt.Errorf("vector store unavailable")
	}
	if k <= 0 {
		k = 5
	}
	embs, err := s.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	raw, err := s.vector.Query(ctx, embs[0], k, nil)
	if err != nil {
		return nil, err
	}
	matches := make([]contextbuild.Match, 0, len(raw))
	for _, m := range raw {
		text, _ := m.Payload["text"].(string)
		matches = append(matches, contextbuild.Match{ID: m.ID, Text: text, Score: m.Score})
	}
	return matches, nil
}

// QueryByContact is Query restricted to one imported contact's history.
func (s *RAGService) QueryByContact(ctx context.Context, contactID, text string, k int) ([]contextbuild.Match, error) {
	if s.vector == nil {
		return nil, fmt.Errorf("vector store unavailable")
	}
	if k <= 0 {
		k = 12
	}
	embs, err := s.ai.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	raw, err := s.vector.Query(ctx, embs[0], k, map[string]any{"contact_id": contactID})
	if err != nil {
		return nil, err
	}
	matches := make([]contextbuild.Match, 0, len(raw))
	for _, m := range raw {
		text, _ := m.Payload["text"].(string)
		matches = append(matches, contextbuild.Match{ID: m.ID, Text: text, Score: m.Score})
	}
	return matches, nil
}

// DeleteByDiscussion removes every indexed snippet of a deleted discussion.
func (s *RAGService) DeleteByDiscussion(ctx context.Context, discussionID string) error {
	if s.vector == nil {
		return fmt.Errorf("vector store unavailable")
	}
	return s.vector.DeleteByFilter(ctx, map[string]any{"discussion_id": discussionID})
}

func contentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}
