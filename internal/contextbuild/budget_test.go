package contextbuild

import "testing"

func TestBudgetPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  BudgetPolicy
		wantErr bool
	}{
		{name: "defaults are valid", policy: DefaultBudgetPolicy(), wantErr: false},
		{
			name:    "negative total",
			policy:  BudgetPolicy{MaxTotal: -1},
			wantErr: true,
		},
		{
			name: "negative per-source ceiling",
			policy: BudgetPolicy{
				MaxTotal:     100,
				MaxPerSource: map[SourceKind]int{SourceDiscussion: -5},
			},
			wantErr: true,
		},
		{
			name: "per-source ceiling above total",
			policy: BudgetPolicy{
				MaxTotal:     100,
				MaxPerSource: map[SourceKind]int{SourceRetrieval: 200},
			},
			wantErr: true,
		},
		{
			name: "zero ceilings allowed",
			policy: BudgetPolicy{
				MaxTotal:     0,
				MaxPerSource: map[SourceKind]int{SourceDiscussion: 0},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadBudgetPolicyFromEnv(t *testing.T) {
	t.Setenv("CONTEXT_MAX_TOTAL", "500")
	t.Setenv("CONTEXT_MAX_DISCUSSION", "300")
	t.Setenv("CONTEXT_MAX_CHAT_HISTORY", "100")
	t.Setenv("CONTEXT_MAX_RETRIEVAL", "100")

	policy := LoadBudgetPolicyFromEnv(testLogger(t))
	if policy.MaxTotal != 500 {
		t.Fatalf("MaxTotal = %d, want 500", policy.MaxTotal)
	}
	if got := policy.ceilingFor(SourceDiscussion); got != 300 {
		t.Fatalf("discussion ceiling = %d, want 300", got)
	}
}

func TestLoadBudgetPolicyFromEnvInvalidFallsBack(t *testing.T) {
	t.Setenv("CONTEXT_MAX_TOTAL", "100")
	t.Setenv("CONTEXT_MAX_DISCUSSION", "9999")

	policy := LoadBudgetPolicyFromEnv(testLogger(t))
	def := DefaultBudgetPolicy()
	if policy.MaxTotal != def.MaxTotal {
		t.Fatalf("MaxTotal = %d, want default %d", policy.MaxTotal, def.MaxTotal)
	}
}
