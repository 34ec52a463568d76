package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/speakify/backend/internal/quota"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// User represents a user record with subscription and quota state.
type User struct {
	ID                string    `json:"id"`
	SubscriptionTier  string    `json:"subscription_tier"`
	MonthlyTokenLimit *int      `json:"monthly_token_limit,omitempty"` // nil means unlimited
	TokensUsed        int       `json:"tokens_used"`
	StripeCustomerID  *string   `json:"stripe_customer_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Conversion represents one text-to-speech job submitted by a user.
// Rows are never deleted here; retention is a database concern.
type Conversion struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	VoiceID    string    `json:"voice_id"`
	TokenCount int       `json:"token_count"`
	AudioURL   string    `json:"audio_url"`
	TaskID     string    `json:"task_id"`
	Progress   int       `json:"progress"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx, `
		SELECT id, subscription_tier, monthly_token_limit, tokens_used, stripe_customer_id, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.SubscriptionTier, &u.MonthlyTokenLimit, &u.TokensUsed, &u.StripeCustomerID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserQuota reads the quota-relevant columns of a user row.
func (s *Store) GetUserQuota(ctx context.Context, id string) (quota.UserQuota, error) {
	var uq quota.UserQuota
	err := s.db.QueryRow(ctx, `
		SELECT subscription_tier, monthly_token_limit, tokens_used
		FROM users WHERE id = $1
	`, id).Scan(&uq.SubscriptionTier, &uq.MonthlyTokenLimit, &uq.TokensUsed)
	return uq, err
}

// AddTokensUsed records consumed tokens as a single relative update. Postgres
// row-level locking serializes concurrent submissions from the same user.
func (s *Store) AddTokensUsed(ctx context.Context, id string, tokens int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET tokens_used = tokens_used + $1,
		    updated_at = now()
		WHERE id = $2
	`, tokens, id)
	return err
}

func (s *Store) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET stripe_customer_id = $1,
		    updated_at = now()
		WHERE id = $2
	`, customerID, userID)
	return err
}

// ActivatePremium upgrades a user to the premium tier with an unlimited
// monthly budget. The stored Stripe customer id is kept when the webhook
// did not carry one.
func (s *Store) ActivatePremium(ctx context.Context, userID, stripeCustomerID string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET subscription_tier = 'premium',
		    monthly_token_limit = NULL,
		    stripe_customer_id = CASE WHEN $1 = '' THEN stripe_customer_id ELSE $1 END,
		    updated_at = now()
		WHERE id = $2
	`, stripeCustomerID, userID)
	return err
}

// DowngradeByStripeCustomer resets a user to the free tier after their
// subscription ended. Returns the affected user id.
func (s *Store) DowngradeByStripeCustomer(ctx context.Context, stripeCustomerID string, monthlyTokenLimit int) (string, error) {
	var userID string
	err := s.db.QueryRow(ctx, `
		UPDATE users
		SET subscription_tier = 'free',
		    monthly_token_limit = $1,
		    tokens_used = 0,
		    updated_at = now()
		WHERE stripe_customer_id = $2
		RETURNING id
	`, monthlyTokenLimit, stripeCustomerID).Scan(&userID)
	return userID, err
}

// InsertConversion records a conversion stub at submission time.
func (s *Store) InsertConversion(ctx context.Context, c Conversion) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO conversions (id, user_id, text, voice_id, token_count, audio_url, task_id, progress, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
	`, c.UserID, c.Text, c.VoiceID, c.TokenCount, c.AudioURL, c.TaskID, c.Progress, c.Status)
	return err
}

// UpdateConversionStatus propagates a status poll into the conversion row.
// An empty audioURL leaves the stored value untouched.
func (s *Store) UpdateConversionStatus(ctx context.Context, taskID, userID, status string, progress int, audioURL string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE conversions
		SET status = $1,
		    progress = $2,
		    audio_url = CASE WHEN $3 = '' THEN audio_url ELSE $3 END
		WHERE task_id = $4 AND user_id = $5
	`, status, progress, audioURL, taskID, userID)
	return err
}

func (s *Store) ListConversionsByUser(ctx context.Context, userID string, limit int) ([]Conversion, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, text, voice_id, token_count, audio_url, task_id, progress, status, created_at
		FROM conversions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		var c Conversion
		err := rows.Scan(&c.ID, &c.UserID, &c.Text, &c.VoiceID, &c.TokenCount, &c.AudioURL, &c.TaskID, &c.Progress, &c.Status, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
