package quota

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
)

func intPtr(i int) *int { return &i }

// fakeStore implements Store in memory and records mutations.
type fakeStore struct {
	quota     UserQuota
	lookupErr error
	addErr    error
	added     int
	addCalls  int
}

func (f *fakeStore) GetUserQuota(_ context.Context, _ string) (UserQuota, error) {
	if f.lookupErr != nil {
		return UserQuota{}, f.lookupErr
	}
	return f.quota, nil
}

func (f *fakeStore) AddTokensUsed(_ context.Context, _ string, tokens int) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added += tokens
	f.addCalls++
	return nil
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"exactly four", "abcd", 1},
		{"five chars rounds up", "abcde", 2},
		{"eight chars", "abcdefgh", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.text)
			if got != tt.want {
				t.Errorf("Tokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCheckAndReserve_FreeUserDenied(t *testing.T) {
	fs := &fakeStore{quota: UserQuota{
		SubscriptionTier:  "free",
		MonthlyTokenLimit: intPtr(10000),
		TokensUsed:        9000,
	}}
	l := NewLedger(fs, 10000, testLogger())

	d := l.CheckAndReserve(context.Background(), "user-1", 1500)

	if d.Allowed {
		t.Fatal("expected Deny for free user over limit")
	}
	if d.Reason != ReasonLimitExceeded {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonLimitExceeded)
	}
	if d.Limit != 10000 || d.Used != 9000 || d.Requested != 1500 {
		t.Errorf("decision = {limit=%d, used=%d, requested=%d}, want {10000, 9000, 1500}", d.Limit, d.Used, d.Requested)
	}
	if fs.addCalls != 0 {
		t.Errorf("tokens_used mutated on Deny: %d add calls", fs.addCalls)
	}
}

func TestCheckAndReserve_FreeUserAllowed(t *testing.T) {
	fs := &fakeStore{quota: UserQuota{
		SubscriptionTier:  "free",
		MonthlyTokenLimit: intPtr(10000),
		TokensUsed:        9000,
	}}
	l := NewLedger(fs, 10000, testLogger())

	d := l.CheckAndReserve(context.Background(), "user-1", 500)

	if !d.Allowed {
		t.Fatalf("expected Allow, got reason %q", d.Reason)
	}
	if fs.added != 500 {
		t.Errorf("recorded tokens = %d, want 500", fs.added)
	}
	if d.Used != 9500 {
		t.Errorf("decision used = %d, want 9500", d.Used)
	}
}

func TestCheckAndReserve_ExactLimitAllowed(t *testing.T) {
	fs := &fakeStore{quota: UserQuota{
		SubscriptionTier:  "free",
		MonthlyTokenLimit: intPtr(10000),
		TokensUsed:        9000,
	}}
	l := NewLedger(fs, 10000, testLogger())

	d := l.CheckAndReserve(context.Background(), "user-1", 1000)
	if !d.Allowed {
		t.Fatalf("request landing exactly on the limit should be allowed, got %q", d.Reason)
	}
}

func TestCheckAndReserve_PremiumNeverMetered(t *testing.T) {
	fs := &fakeStore{quota: UserQuota{
		SubscriptionTier: TierPremium,
		TokensUsed:       123,
	}}
	l := NewLedger(fs, 10000, testLogger())

	d := l.CheckAndReserve(context.Background(), "user-1", 50_000_000)

	if !d.Allowed {
		t.Fatalf("premium user must always be allowed, got %q", d.Reason)
	}
	if fs.addCalls != 0 {
		t.Errorf("premium usage must not be recorded, got %d add calls", fs.addCalls)
	}
}

// Any tier other than premium is metered; there is no undocumented third tier.
func TestCheckAndReserve_UnknownTierIsMetered(t *testing.T) {
	fs := &fakeStore{quota: UserQuota{
		SubscriptionTier:  "trial",
		MonthlyTokenLimit: intPtr(100),
		TokensUsed:        90,
	}}
	l := NewLedger(fs, 10000, testLogger())

	d := l.CheckAndReserve(context.Background(), "user-1", 20)
	if d.Allowed {
		t.Fatal("non-premium tier over its limit must be denied")
	}
}

func TestCheckAndReserve_NilLimitIsUnlimited(t *testing.T) {
	fs := &fakeStore{quota: UserQuota{
		SubscriptionTier:  "free",
		MonthlyTokenLimit: nil,
		TokensUsed:        999999,
	}}
	l := NewLedger(fs, 10000, testLogger())

	d := l.CheckAndReserve(context.Background(), "user-1", 50000)
	if !d.Allowed {
		t.Fatalf("nil limit means unlimited, got %q", d.Reason)
	}
}

func TestCheckAndReserve_Anonymous(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		allowed   bool
	}{
		{"at the ceiling", 10000, true},
		{"one over", 10001, false},
		{"small request", 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := &fakeStore{}
			l := NewLedger(fs, 10000, testLogger())

			d := l.CheckAndReserve(context.Background(), "", tt.requested)
			if d.Allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v", d.Allowed, tt.allowed)
			}
			if !tt.allowed && d.Limit != 10000 {
				t.Errorf("denied limit = %d, want 10000", d.Limit)
			}
			if fs.addCalls != 0 {
				t.Error("anonymous requests must not touch the store")
			}
		})
	}
}

func TestCheckAndReserve_LookupFailure(t *testing.T) {
	fs := &fakeStore{lookupErr: errors.New("connection refused")}
	l := NewLedger(fs, 10000, testLogger())

	d := l.CheckAndReserve(context.Background(), "user-1", 10)

	if d.Allowed {
		t.Fatal("lookup failure must deny")
	}
	if d.Reason != ReasonLookupFailed {
		t.Errorf("reason = %q, want %q", d.Reason, ReasonLookupFailed)
	}
	if fs.addCalls != 0 {
		t.Error("no mutation on lookup failure")
	}
}

func TestCheckAndReserve_RecordFailureStillAllows(t *testing.T) {
	fs := &fakeStore{
		quota:  UserQuota{SubscriptionTier: "free", MonthlyTokenLimit: intPtr(10000), TokensUsed: 0},
		addErr: errors.New("connection reset"),
	}
	l := NewLedger(fs, 10000, testLogger())

	d := l.CheckAndReserve(context.Background(), "user-1", 100)
	if !d.Allowed {
		t.Fatalf("a failed usage write must not deny the conversion, got %q", d.Reason)
	}
}
