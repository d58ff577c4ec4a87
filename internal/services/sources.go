package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/argo-backend/internal/contextbuild"
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/repos"
	"github.com/yungbote/argo-backend/internal/types"
)

const defaultHistoryWindow = 80

// discussionSource feeds the discussion-history section of assembled context
// from the relational message store, newest last.
type discussionSource struct {
	log      *logger.Logger
	messages repos.MessageRepo
	window   int
}

func NewDiscussionSource(log *logger.Logger, messages repos.MessageRepo) contextbuild.DiscussionSource {
	return &discussionSource{
		log:      log.With("component", "DiscussionSource"),
		messages: messages,
		window:   defaultHistoryWindow,
	}
}

func (s *discussionSource) Fetch(ctx context.Context, discussionID string) (string, error) {
	id, err := uuid.Parse(discussionID)
	if err != nil {
		return "", fmt.Errorf("bad discussion id %q: %w", discussionID, err)
	}
	msgs, err := s.messages.ListRecentByDiscussion(ctx, nil, id, s.window)
	if err != nil {
		return "", err
	}
	return formatDiscussionMessages(msgs), nil
}

func formatDiscussionMessages(msgs []*types.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		cleaned := strings.TrimSpace(strings.ReplaceAll(m.Text, "\n", " "))
		if cleaned == "" {
			continue
		}
		lines = append(lines, strings.ToUpper(m.Role)+": "+cleaned)
	}
	return strings.Join(lines, "\n")
}

// chatHistorySource feeds the chat-message history section from the imported
// archive. An absent or failing archive store yields empty text, not an
// error: history is an enrichment, never a prerequisite.
type chatHistorySource struct {
	log      *logger.Logger
	messages repos.ContactMessageRepo
}

func NewChatHistorySource(log *logger.Logger, messages repos.ContactMessageRepo) contextbuild.ChatHistorySource {
	return &chatHistorySource{
		log:      log.With("component", "ChatHistorySource"),
		messages: messages,
	}
}

func (s *chatHistorySource) Fetch(ctx context.Context, conversationID string, window int) (string, error) {
	if s.messages == nil {
		return "", nil
	}
	if window <= 0 {
		window = defaultHistoryWindow
	}
	msgs, err := s.messages.ListRecentByContact(ctx, nil, conversationID, window)
	if err != nil {
		s.log.Warn("Chat history store unavailable, returning empty history", "conversation_id", conversationID, "error", err)
		return "", nil
	}
	return formatContactMessages(msgs), nil
}

func formatContactMessages(msgs []*types.ContactMessage) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		cleaned := strings.TrimSpace(strings.ReplaceAll(m.Text, "\n", " "))
		if cleaned == "" {
			continue
		}
		who := "IN"
		if m.Direction == "out" {
			who = "OUT"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", m.SentAt.UTC().Format("2006-01-02T15:04:05Z"), who, cleaned))
	}
	return strings.Join(lines, "\n")
}
