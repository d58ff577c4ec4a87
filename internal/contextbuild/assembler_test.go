package contextbuild

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/argo-backend/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

type fakeDiscussionSource struct {
	text string
	err  error
}

func (f *fakeDiscussionSource) Fetch(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

type fakeHistorySource struct {
	text string
	err  error
}

func (f *fakeHistorySource) Fetch(_ context.Context, _ string, _ int) (string, error) {
	return f.text, f.err
}

type fakeRetrievalSource struct {
	matches []Match
	err     error
}

func (f *fakeRetrievalSource) Query(_ context.Context, _ string, _ int) ([]Match, error) {
	return f.matches, f.err
}

func fullRequest() Request {
	return Request{
		DiscussionID:   "d1",
		ConversationID: "c1",
		HistoryWindow:  10,
		Query:          "what happened",
		RetrievalK:     3,
	}
}

func TestAssembleOrderAndSeparator(t *testing.T) {
	a := NewAssembler(
		testLogger(t),
		DefaultBudgetPolicy(),
		&fakeDiscussionSource{text: "DISCUSSION"},
		&fakeHistorySource{text: "HISTORY"},
		&fakeRetrievalSource{matches: []Match{{ID: "m1", Text: "MATCH"}}},
	)

	out := a.Assemble(context.Background(), fullRequest())
	want := "DISCUSSION\n\nHISTORY\n\nMATCH"
	if out.CombinedText != want {
		t.Fatalf("combined = %q, want %q", out.CombinedText, want)
	}
	if out.TotalTruncated {
		t.Fatalf("unexpected global truncation")
	}
	if len(out.Sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(out.Sections))
	}
}

func TestAssemblePerSourceTruncation(t *testing.T) {
	policy := BudgetPolicy{
		MaxTotal: 100,
		MaxPerSource: map[SourceKind]int{
			SourceDiscussion:  5,
			SourceChatHistory: 100,
			SourceRetrieval:   100,
		},
	}
	a := NewAssembler(
		testLogger(t),
		policy,
		&fakeDiscussionSource{text: "1234567890"},
		&fakeHistorySource{},
		&fakeRetrievalSource{},
	)

	out := a.Assemble(context.Background(), fullRequest())
	if out.Sections[0].Text != "67890" {
		t.Fatalf("discussion section = %q, want tail %q", out.Sections[0].Text, "67890")
	}
	if !out.Sections[0].Truncated {
		t.Fatalf("discussion section not marked truncated")
	}
}

func TestAssembleGlobalCeilingWhenSourcesSaturate(t *testing.T) {
	policy := BudgetPolicy{
		MaxTotal: 10,
		MaxPerSource: map[SourceKind]int{
			SourceDiscussion:  8,
			SourceChatHistory: 8,
			SourceRetrieval:   8,
		},
	}
	a := NewAssembler(
		testLogger(t),
		policy,
		&fakeDiscussionSource{text: strings.Repeat("a", 20)},
		&fakeHistorySource{text: strings.Repeat("b", 20)},
		&fakeRetrievalSource{matches: []Match{{ID: "m1", Text: strings.Repeat("c", 20)}}},
	)

	out := a.Assemble(context.Background(), fullRequest())
	if got := len([]rune(out.CombinedText)); got != 10 {
		t.Fatalf("combined length = %d, want 10", got)
	}
	if !out.TotalTruncated {
		t.Fatalf("global truncation not reported")
	}
}

func TestAssembleFailingSourceDegrades(t *testing.T) {
	a := NewAssembler(
		testLogger(t),
		DefaultBudgetPolicy(),
		&fakeDiscussionSource{text: "DISCUSSION"},
		&fakeHistorySource{err: errors.New("store down")},
		&fakeRetrievalSource{matches: []Match{{ID: "m1", Text: "MATCH"}}},
	)

	out := a.Assemble(context.Background(), fullRequest())
	want := "DISCUSSION\n\nMATCH"
	if out.CombinedText != want {
		t.Fatalf("combined = %q, want %q", out.CombinedText, want)
	}
	if out.Sections[1].Text != "" {
		t.Fatalf("failed section text = %q, want empty", out.Sections[1].Text)
	}
}

func TestAssembleEmptyRequestSkipsSources(t *testing.T) {
	a := NewAssembler(
		testLogger(t),
		DefaultBudgetPolicy(),
		&fakeDiscussionSource{text: "DISCUSSION"},
		&fakeHistorySource{text: "HISTORY"},
		&fakeRetrievalSource{matches: []Match{{ID: "m1", Text: "MATCH"}}},
	)

	out := a.Assemble(context.Background(), Request{})
	if out.CombinedText != "" {
		t.Fatalf("combined = %q, want empty", out.CombinedText)
	}
	for _, s := range out.Sections {
		if s.Truncated {
			t.Fatalf("empty section %q marked truncated", s.Kind)
		}
	}
}

func TestAssembleNilSources(t *testing.T) {
	a := NewAssembler(testLogger(t), DefaultBudgetPolicy(), nil, nil, nil)
	out := a.Assemble(context.Background(), fullRequest())
	if out.CombinedText != "" {
		t.Fatalf("combined = %q, want empty", out.CombinedText)
	}
}

func TestAssembleRetrievalJoinsMatches(t *testing.T) {
	a := NewAssembler(
		testLogger(t),
		DefaultBudgetPolicy(),
		nil,
		nil,
		&fakeRetrievalSource{matches: []Match{
			{ID: "m1", Text: "first"},
			{ID: "m2", Text: ""},
			{ID: "m3", Text: "third"},
		}},
	)

	out := a.Assemble(context.Background(), Request{Query: "q", RetrievalK: 3})
	if out.CombinedText != "first\nthird" {
		t.Fatalf("combined = %q, want %q", out.CombinedText, "first\nthird")
	}
}
