package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/argo-backend/internal/logger"
)

const (
	payloadIDKey      = "_argo_id"
	maxErrorBodyBytes = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("6fa2af0e-5b71-4fd2-91f0-8a3c5bfa8c47")

type Vector struct {
	ID      string
	Values  []float32
	Payload map[string]any
}

type Match struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// VectorStore is the similarity index behind the retrieval context source and
// the chat-history import.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, vectors []Vector) error
	Query(ctx context.Context, q []float32, topK int, filter map[string]any) ([]Match, error)
	DeleteByFilter(ctx context.Context, filter map[string]any) error
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Ping(ctx context.Context) error
}

type vectorStore struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

func NewVectorStore(log *logger.Logger, cfg Config) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	s := &vectorStore{
		log:     log.With("service", "QdrantVectorStore"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}

	s.log.Info("Qdrant vector store configured",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func (s *vectorStore) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}

func (s *vectorStore) pointID(vectorID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(vectorID)).String()
}

func (s *vectorStore) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("qdrant http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("qdrant decode: %w", err)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("qdrant decode result: %w", err)
	}
	return nil
}

// EnsureCollection creates the collection if it does not exist yet.
func (s *vectorStore) EnsureCollection(ctx context.Context) error {
	if err := s.doJSON(ctx, http.MethodGet, s.collectionPath(""), nil, &json.RawMessage{}); err == nil {
		return nil
	}
	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.cfg.VectorDim,
			"distance": "Cosine",
		},
	}
	if err := s.doJSON(ctx, http.MethodPut, s.collectionPath(""), req, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.log.Info("Created Qdrant collection", "collection", s.cfg.Collection)
	return nil
}

func (s *vectorStore) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(vectors))
	for _, v := range vectors {
		vectorID := strings.TrimSpace(v.ID)
		if vectorID == "" {
			return fmt.Errorf("vector id is required")
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("vector %q has empty values", vectorID)
		}
		if s.cfg.VectorDim > 0 && len(v.Values) != s.cfg.VectorDim {
			return fmt.Errorf("vector %q dimension mismatch: expected=%d got=%d", vectorID, s.cfg.VectorDim, len(v.Values))
		}
		payload := make(map[string]any, len(v.Payload)+1)
		for k, val := range v.Payload {
			payload[k] = val
		}
		payload[payloadIDKey] = vectorID
		points = append(points, map[string]any{
			"id":      s.pointID(vectorID),
			"vector":  v.Values,
			"payload": payload,
		})
	}

	req := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

type searchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func (s *vectorStore) Query(ctx context.Context, q []float32, topK int, filter map[string]any) ([]Match, error) {
	if len(q) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if s.cfg.VectorDim > 0 && len(q) != s.cfg.VectorDim {
		return nil, fmt.Errorf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q))
	}
	if topK <= 0 {
		topK = 10
	}

	req := map[string]any{
		"vector":       q,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := translateFilter(filter); f != nil {
		req["filter"] = f
	}

	var raw []searchResultItem
	if err := s.doJSON(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(raw))
	for _, item := range raw {
		id := ""
		if v, ok := item.Payload[payloadIDKey].(string); ok {
			id = v
		}
		matches = append(matches, Match{ID: id, Score: item.Score, Payload: item.Payload})
	}
	return matches, nil
}

func (s *vectorStore) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	f := translateFilter(filter)
	if f == nil {
		return fmt.Errorf("delete filter required")
	}
	req := map[string]any{"filter": f}
	return s.doJSON(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, nil)
}

type retrieveResultItem struct {
	Payload map[string]any `json:"payload"`
}

// ExistingIDs reports which of the given vector IDs are already indexed.
func (s *vectorStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	pointIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, s.pointID(id))
	}
	req := map[string]any{
		"ids":          pointIDs,
		"with_payload": true,
		"with_vector":  false,
	}
	var raw []retrieveResultItem
	if err := s.doJSON(ctx, http.MethodPost, s.collectionPath("/points"), req, &raw); err != nil {
		return nil, err
	}
	for _, item := range raw {
		if v, ok := item.Payload[payloadIDKey].(string); ok {
			existing[v] = true
		}
	}
	return existing, nil
}

// Ping verifies the collection is reachable, for readiness probes.
func (s *vectorStore) Ping(ctx context.Context) error {
	return s.doJSON(ctx, http.MethodGet, s.collectionPath(""), nil, &json.RawMessage{})
}

// translateFilter turns a flat key=value map into a Qdrant must/match filter.
func translateFilter(filter map[string]any) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(filter))
	for k, v := range filter {
		must = append(must, map[string]any{
			"key":   k,
			"match": map[string]any{"value": v},
		})
	}
	return map[string]any{"must": must}
}
