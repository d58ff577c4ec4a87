package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/argo-backend/internal/apierr"
	"github.com/yungbote/argo-backend/internal/clients/openai"
	"github.com/yungbote/argo-backend/internal/contextbuild"
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/repos"
	"github.com/yungbote/argo-backend/internal/stream"
	"github.com/yungbote/argo-backend/internal/types"
)

const chatSystemPrompt = "You are Argo, a helpful assistant that maintains long-term context across discussions. " +
	"Refer to prior context where relevant."

type DiscussionListItem struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	Tags  []string  `json:"tags"`
}

type DiscussionMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type DiscussionDetail struct {
	Title    string              `json:"title"`
	Tags     []string            `json:"tags"`
	Messages []DiscussionMessage `json:"messages"`
}

type ChatRequest struct {
	Message   string
	ContactID string
}

type DiscussionService struct {
	db          *gorm.DB
	log         *logger.Logger
	discussions repos.DiscussionRepo
	messages    repos.MessageRepo
	rag         *RAGService
	ai          openai.Client
	assembler   *contextbuild.Assembler
	controller  *stream.Controller
	maxMessage  int
}

func NewDiscussionService(
	db *gorm.DB,
	log *logger.Logger,
	discussions repos.DiscussionRepo,
	messages repos.MessageRepo,
	rag *RAGService,
	ai openai.Client,
	assembler *contextbuild.Assembler,
	controller *stream.Controller,
	maxMessageChars int,
) *DiscussionService {
	if maxMessageChars <= 0 {
		maxMessageChars = 10000
	}
	return &DiscussionService{
		db:          db,
		log:         log.With("service", "DiscussionService"),
		discussions: discussions,
		messages:    messages,
		rag:         rag,
		ai:          ai,
		assembler:   assembler,
		controller:  controller,
		maxMessage:  maxMessageChars,
	}
}

func (s *DiscussionService) List(ctx context.Context) ([]DiscussionListItem, error) {
	discussions, err := s.discussions.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	items := make([]DiscussionListItem, 0, len(discussions))
	for _, d := range discussions {
		items = append(items, DiscussionListItem{ID: d.ID, Title: d.Title, Tags: splitTags(d.Tags)})
	}
	return items, nil
}

func (s *DiscussionService) Start(ctx context.Context, title string, tags []string) (uuid.UUID, error) {
	if strings.TrimSpace(title) == "" {
		return uuid.Nil, apierr.Validation(fmt.Errorf("title is required"))
	}
	now := time.Now()
	discussion := &types.Discussion{
		ID:        uuid.New(),
		Title:     title,
		Tags:      strings.Join(tags, ","),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.discussions.Create(ctx, nil, discussion); err != nil {
		return uuid.Nil, err
	}
	return discussion.ID, nil
}

func (s *DiscussionService) Get(ctx context.Context, id uuid.UUID) (*DiscussionDetail, error) {
	discussion, err := s.discussions.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if discussion == nil {
		return nil, nil
	}
	msgs, err := s.messages.ListByDiscussion(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	detail := &DiscussionDetail{
		Title:    discussion.Title,
		Tags:     splitTags(discussion.Tags),
		Messages: make([]DiscussionMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		detail.Messages = append(detail.Messages, DiscussionMessage{Role: m.Role, Text: m.Text})
	}
	return detail, nil
}

func (s *DiscussionService) Delete(ctx context.Context, id uuid.UUID) error {
	discussion, err := s.discussions.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if discussion == nil {
		return apierr.NotFound(fmt.Errorf("discussion not found"))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.messages.DeleteByDiscussion(ctx, tx, id); err != nil {
			return err
		}
		return s.discussions.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	// Vector index cleanup is best-effort; the rows are already gone.
	if err := s.rag.DeleteByDiscussion(ctx, id.String()); err != nil {
		s.log.Warn("RAG cleanup failed for deleted discussion", "discussion_id", id, "error", err)
	}
	return nil
}

// Chat runs one non-streaming turn: persist the user message, assemble
// bounded context, generate a reply, persist and index it.
func (s *DiscussionService) Chat(ctx context.Context, id uuid.UUID, req ChatRequest) (string, error) {
	if err := s.validateMessage(req.Message); err != nil {
		return "", err
	}
	discussion, err := s.discussions.GetByID(ctx, nil, id)
	if err != nil {
		return "", err
	}
	if discussion == nil {
		return "", apierr.NotFound(fmt.Errorf("discussion not found"))
	}

	if err := s.persistMessage(ctx, id, "user", req.Message); err != nil {
		return "", err
	}

	assembled := s.assembler.Assemble(ctx, contextbuild.Request{
		DiscussionID:   id.String(),
		ConversationID: req.ContactID,
		Query:          req.Message,
		RetrievalK:     5,
	})

	reply, err := s.ai.Complete(ctx, chatSystemPrompt, buildUserPrompt(assembled.CombinedText, req.Message))
	if err != nil {
		return "", apierr.New(502, apierr.CodeGeneration, err)
	}

	if err := s.persistMessage(ctx, id, "assistant", reply); err != nil {
		return "", err
	}
	return reply, nil
}

// ChatStream runs one streamed turn through the stream controller. The
// returned session reports how the stream terminated; transport-level
// problems never surface as an error here.
func (s *DiscussionService) ChatStream(ctx context.Context, id uuid.UUID, req ChatRequest, w stream.FrameWriter) (*stream.Session, error) {
	discussion, err := s.discussions.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if discussion == nil {
		return nil, apierr.NotFound(fmt.Errorf("discussion not found"))
	}

	var mu sync.Mutex
	var full strings.Builder
	generate := func(genCtx context.Context) (<-chan stream.Chunk, error) {
		// The user message is only persisted once generation actually starts;
		// validation rejections leave no trace.
		if err := s.persistMessage(genCtx, id, "user", req.Message); err != nil {
			return nil, err
		}

		assembled := s.assembler.Assemble(genCtx, contextbuild.Request{
			DiscussionID:   id.String(),
			ConversationID: req.ContactID,
			Query:          req.Message,
			RetrievalK:     5,
		})

		deltas, err := s.ai.Stream(genCtx, chatSystemPrompt, buildUserPrompt(assembled.CombinedText, req.Message))
		if err != nil {
			return nil, err
		}

		chunks := make(chan stream.Chunk)
		go func() {
			defer close(chunks)
			for d := range deltas {
				if d.Err == nil {
					mu.Lock()
					full.WriteString(d.Text)
					mu.Unlock()
				}
				select {
				case chunks <- stream.Chunk{Text: d.Text, Err: d.Err}:
				case <-genCtx.Done():
					return
				}
			}
		}()
		return chunks, nil
	}

	session := s.controller.Run(ctx, w, req.Message, generate)

	// Persist whatever reached the client; partial output stands.
	mu.Lock()
	reply := full.String()
	mu.Unlock()
	if reply != "" {
		persistCtx := context.WithoutCancel(ctx)
		if err := s.persistMessage(persistCtx, id, "assistant", reply); err != nil {
			s.log.Warn("Failed to persist streamed assistant reply", "discussion_id", id, "error", err)
		}
	}
	return session, nil
}

func (s *DiscussionService) validateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return apierr.Validation(fmt.Errorf("message is required"))
	}
	if len([]rune(message)) > s.maxMessage {
		return apierr.Validation(fmt.Errorf("message exceeds maximum length of %d characters", s.maxMessage))
	}
	return nil
}

func (s *DiscussionService) persistMessage(ctx context.Context, discussionID uuid.UUID, role, text string) error {
	now := time.Now()
	msg := &types.Message{
		ID:           uuid.New(),
		DiscussionID: discussionID,
		Role:         role,
		Text:         text,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.messages.Create(ctx, nil, []*types.Message{msg}); err != nil {
		return err
	}
	if err := s.rag.AddMessage(ctx, discussionID.String(), text, role); err != nil {
		s.log.Warn("Failed to index message into RAG", "discussion_id", discussionID, "role", role, "error", err)
	}
	return nil
}

func buildUserPrompt(contextText, message string) string {
	return fmt.Sprintf("Context:\n%s\n\nUser: %s", contextText, message)
}

func splitTags(tags string) []string {
	if tags == "" {
		return []string{}
	}
	return strings.Split(tags, ",")
}
