package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/argo-backend/internal/analysiscache"
	"github.com/yungbote/argo-backend/internal/clients/openai"
	"github.com/yungbote/argo-backend/internal/clients/qdrant"
	"github.com/yungbote/argo-backend/internal/clients/redis"
	"github.com/yungbote/argo-backend/internal/logger"
	"github.com/yungbote/argo-backend/internal/repos"
	"github.com/yungbote/argo-backend/internal/types"
)

const importBatchSize = 128

type archiveContact struct {
	ContactID   string           `json:"contact_id"`
	DisplayName string           `json:"display_name"`
	Messages    []archiveMessage `json:"messages"`
}

type archiveMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
}

type ImportStats struct {
	Contacts int `json:"contacts"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// HistoryImportService loads the external chat-message archive into the
// relational store and indexes it into the vector store. Completion of a
// rebuild invalidates all cached analysis, locally and via the bus.
type HistoryImportService struct {
	log      *logger.Logger
	contacts repos.ContactRepo
	messages repos.ContactMessageRepo
	ai       openai.Client
	vector   qdrant.VectorStore
	cache    *analysiscache.Cache
	bus      redis.InvalidationBus
}

func NewHistoryImportService(
	log *logger.Logger,
	contacts repos.ContactRepo,
	messages repos.ContactMessageRepo,
	ai openai.Client,
	vector qdrant.VectorStore,
	cache *analysiscache.Cache,
	bus redis.InvalidationBus,
) *HistoryImportService {
	return &HistoryImportService{
		log:      log.With("service", "HistoryImportService"),
		contacts: contacts,
		messages: messages,
		ai:       ai,
		vector:   vector,
		cache:    cache,
		bus:      bus,
	}
}

// LoadArchive reads a chat-history archive file into the relational store.
// Contacts already holding messages are skipped so re-loading is idempotent.
func (s *HistoryImportService) LoadArchive(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read archive: %w", err)
	}
	var archive []archiveContact
	if err := json.Unmarshal(raw, &archive); err != nil {
		return 0, fmt.Errorf("parse archive: %w", err)
	}

	loaded := 0
	for _, ac := range archive {
		if ac.ContactID == "" {
			continue
		}
		now := time.Now()
		contact := &types.Contact{
			ID:          ac.ContactID,
			DisplayName: ac.DisplayName,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.contacts.Upsert(ctx, nil, []*types.Contact{contact}); err != nil {
			return loaded, err
		}

		count, err := s.messages.CountByContact(ctx, nil, ac.ContactID)
		if err != nil {
			return loaded, err
		}
		if count > 0 {
			continue
		}

		msgs := make([]*types.ContactMessage, 0, len(ac.Messages))
		for _, am := range ac.Messages {
			if am.Text == "" {
				continue
			}
			direction := "in"
			if am.Role == "out" || am.Role == "user" {
				direction = "out"
			}
			msgs = append(msgs, &types.ContactMessage{
				ID:        uuid.New(),
				ContactID: ac.ContactID,
				Direction: direction,
				Sender:    am.Sender,
				Text:      am.Text,
				SentAt:    am.Timestamp,
				CreatedAt: now,
			})
		}
		if err := s.messages.Create(ctx, nil, msgs); err != nil {
			return loaded, err
		}
		loaded++
	}
	s.log.Info("Archive loaded", "contacts", loaded)
	return loaded, nil
}

// Rebuild embeds the stored chat history into the vector index. Incremental
// mode skips messages already indexed (stable content-hash IDs make this
// safe across re-runs).
func (s *HistoryImportService) Rebuild(ctx context.Context, incremental bool) (*ImportStats, error) {
	if s.vector == nil {
		return nil, fmt.Errorf("vector store unavailable")
	}

	contacts, err := s.contacts.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	stats := &ImportStats{Contacts: len(contacts)}
	type pending struct {
		id      string
		text    string
		payload map[string]any
	}
	var queue []pending

	for _, c := range contacts {
		msgs, err := s.messages.ListByContact(ctx, nil, c.ID)
		if err != nil {
			s.log.Warn("Skipping contact, failed to load messages", "contact_id", c.ID, "error", err)
			continue
		}
		for _, m := range msgs {
			if m.Text == "" {
				continue
			}
			ts := m.SentAt.UTC().Format(time.RFC3339)
			id := fmt.Sprintf("%s::%s::%s", c.ID, ts, contentHash(c.ID+ts+m.Text))
			who := "IN"
			if m.Direction == "out" {
				who = "OUT"
			}
			queue = append(queue, pending{
				id:   id,
				text: fmt.Sprintf("[%s] %s: %s", ts, who, m.Text),
				payload: map[string]any{
					"contact_id":   c.ID,
					"display_name": c.DisplayName,
					"ts":           ts,
					"direction":    m.Direction,
				},
			})
		}
	}

	for start := 0; start < len(queue); start += importBatchSize {
		end := start + importBatchSize
		if end > len(queue) {
			end = len(queue)
		}
		batch := queue[start:end]

		ids := make([]string, 0, len(batch))
		for _, p := range batch {
			ids = append(ids, p.id)
		}
		existing := map[string]bool{}
		if incremental {
			existing, err = s.vector.ExistingIDs(ctx, ids)
			if err != nil {
				return stats, fmt.Errorf("check existing ids: %w", err)
			}
		}

		texts := make([]string, 0, len(batch))
		fresh := make([]pending, 0, len(batch))
		for _, p := range batch {
			if existing[p.id] {
				stats.Skipped++
				continue
			}
			texts = append(texts, p.text)
			fresh = append(fresh, p)
		}
		if len(fresh) == 0 {
			continue
		}

		embs, err := s.ai.Embed(ctx, texts)
		if err != nil {
			return stats, fmt.Errorf("embed batch: %w", err)
		}
		vectors := make([]qdrant.Vector, 0, len(fresh))
		for i, p := range fresh {
			payload := p.payload
			payload["text"] = p.text
			vectors = append(vectors, qdrant.Vector{ID: p.id, Values: embs[i], Payload: payload})
		}
		if err := s.vector.Upsert(ctx, vectors); err != nil {
			return stats, fmt.Errorf("upsert batch: %w", err)
		}
		stats.Imported += len(fresh)

		if stats.Imported%(importBatchSize*5) == 0 {
			s.log.Info("Import progress", "imported", stats.Imported, "skipped", stats.Skipped)
		}
	}

	s.log.Info("History rebuild complete", "contacts", stats.Contacts, "imported", stats.Imported, "skipped", stats.Skipped)
	s.InvalidateAnalysis(ctx, "history_rebuild")
	return stats, nil
}

// InvalidateAnalysis clears local cache state and tells every other instance
// to do the same. The refresh may have changed any analysis input.
func (s *HistoryImportService) InvalidateAnalysis(ctx context.Context, reason string) {
	s.cache.InvalidateAll()
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, redis.InvalidationEvent{Scope: redis.ScopeAll, Reason: reason}); err != nil {
		s.log.Warn("Failed to publish invalidation event", "reason", reason, "error", err)
	}
}
