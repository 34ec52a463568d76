// Package quota enforces per-user token budgets for conversions.
package quota

import (
	"context"
	"log"
)

// Subscription tiers. Any tier other than premium is subject to the
// monthly token limit.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// Tokens approximates conversion cost as one token per four characters,
// rounded up. This is a coarse proxy, not a real tokenizer.
func Tokens(text string) int {
	return (len(text) + 3) / 4
}

// Reason classifies a ledger decision.
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonLimitExceeded Reason = "limit_exceeded"
	ReasonLookupFailed  Reason = "lookup_failed"
)

// Decision is the outcome of a quota check. Limit, Used and Requested are
// populated on denial so callers can render a precise message.
type Decision struct {
	Allowed   bool
	Reason    Reason
	Limit     int
	Used      int
	Requested int
}

// UserQuota is the quota-relevant slice of a user record.
type UserQuota struct {
	SubscriptionTier  string
	MonthlyTokenLimit *int // nil means unlimited
	TokensUsed        int
}

// Store is the persistence surface the ledger needs.
type Store interface {
	GetUserQuota(ctx context.Context, userID string) (UserQuota, error)
	AddTokensUsed(ctx context.Context, userID string, tokens int) error
}

// Ledger applies the token budget policy for a conversion request.
type Ledger struct {
	store     Store
	anonLimit int
	logger    *log.Logger
}

// NewLedger creates a quota ledger. anonLimit is the per-request ceiling for
// anonymous callers; it is a separate knob from the free tier's monthly limit
// even though both default to the same value.
func NewLedger(store Store, anonLimit int, logger *log.Logger) *Ledger {
	return &Ledger{store: store, anonLimit: anonLimit, logger: logger}
}

// CheckAndReserve decides whether a request for the given token count may
// proceed. An empty userID means the caller is anonymous. On Allow for a
// metered user the tokens are recorded before returning; nothing is mutated
// on Deny.
func (l *Ledger) CheckAndReserve(ctx context.Context, userID string, requested int) Decision {
	if userID == "" {
		if requested > l.anonLimit {
			return Decision{Reason: ReasonLimitExceeded, Limit: l.anonLimit, Requested: requested}
		}
		return Decision{Allowed: true, Reason: ReasonOK, Limit: l.anonLimit, Requested: requested}
	}

	uq, err := l.store.GetUserQuota(ctx, userID)
	if err != nil {
		l.logger.Printf("quota: failed to read quota for user %s: %v", userID, err)
		return Decision{Reason: ReasonLookupFailed, Requested: requested}
	}

	if uq.SubscriptionTier == TierPremium {
		return Decision{Allowed: true, Reason: ReasonOK, Used: uq.TokensUsed, Requested: requested}
	}

	// nil limit means unlimited, so only a set limit can deny.
	if uq.MonthlyTokenLimit != nil && uq.TokensUsed+requested > *uq.MonthlyTokenLimit {
		return Decision{
			Reason:    ReasonLimitExceeded,
			Limit:     *uq.MonthlyTokenLimit,
			Used:      uq.TokensUsed,
			Requested: requested,
		}
	}

	// The conversion already proceeds either way; a failed usage write loses
	// billing accuracy, not correctness, so it is logged rather than surfaced.
	if err := l.store.AddTokensUsed(ctx, userID, requested); err != nil {
		l.logger.Printf("quota: failed to record %d tokens for user %s: %v", requested, userID, err)
	}

	d := Decision{Allowed: true, Reason: ReasonOK, Used: uq.TokensUsed + requested, Requested: requested}
	if uq.MonthlyTokenLimit != nil {
		d.Limit = *uq.MonthlyTokenLimit
	}
	return d
}
