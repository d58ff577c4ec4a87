package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/argo-backend/internal/types"
)

func TestSnip(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{name: "short text untouched", text: "hello", n: 10, want: "hello"},
		{name: "exact length untouched", text: "hello", n: 5, want: "hello"},
		{name: "long text gets ellipsis", text: "hello world", n: 5, want: "hello…"},
		{name: "newlines flattened", text: "a\nb\nc", n: 10, want: "a b c"},
		{name: "surrounding space trimmed", text: "  hi  ", n: 10, want: "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := snip(tt.text, tt.n); got != tt.want {
				t.Fatalf("snip(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
			}
		})
	}
}

func TestLaterThan(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if laterThan(nil, &early) {
		t.Fatalf("nil should never be later")
	}
	if !laterThan(&early, nil) {
		t.Fatalf("any time is later than nil")
	}
	if !laterThan(&late, &early) {
		t.Fatalf("late should be later than early")
	}
	if laterThan(&early, &late) {
		t.Fatalf("early should not be later than late")
	}
}

func TestSplitTags(t *testing.T) {
	if got := splitTags(""); len(got) != 0 {
		t.Fatalf("splitTags(\"\") = %v, want empty", got)
	}
	got := splitTags("a,b,c")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("splitTags = %v", got)
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := buildUserPrompt("CTX", "question")
	want := "Context:\nCTX\n\nUser: question"
	if got != want {
		t.Fatalf("buildUserPrompt = %q, want %q", got, want)
	}
}

func TestFormatContactMessages(t *testing.T) {
	sent := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	msgs := []*types.ContactMessage{
		{ID: uuid.New(), ContactID: "c1", Direction: "in", Text: "hey there", SentAt: sent},
		{ID: uuid.New(), ContactID: "c1", Direction: "out", Text: "hi!\nhow are you", SentAt: sent.Add(time.Minute)},
		{ID: uuid.New(), ContactID: "c1", Direction: "in", Text: "   ", SentAt: sent.Add(2 * time.Minute)},
	}

	got := formatContactMessages(msgs)
	want := "[2024-03-15T12:30:00Z] IN: hey there\n[2024-03-15T12:31:00Z] OUT: hi! how are you"
	if got != want {
		t.Fatalf("formatContactMessages = %q, want %q", got, want)
	}
}

func TestContentHashStable(t *testing.T) {
	a := contentHash("same input")
	b := contentHash("same input")
	if a != b {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
	if len(a) != 12 {
		t.Fatalf("hash length = %d, want 12", len(a))
	}
	if a == contentHash("other input") {
		t.Fatalf("distinct inputs collide")
	}
}
