// Package voices caches the provider's voice catalog with tier-based filtering.
package voices

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/speakify/backend/internal/synthesis"
)

// DefaultTTL is how long a fetched catalog is served before refreshing.
const DefaultTTL = time.Hour

// premiumLanguages gates which catalog entries free users can see.
// Placeholder policy, not derived from the provider.
var premiumLanguages = map[string]bool{
	"Arabic":   true,
	"Chinese":  true,
	"Japanese": true,
	"Korean":   true,
}

// fallbackVoices keeps the voice picker working when the provider is down.
var fallbackVoices = []synthesis.Voice{
	{Artist: "Emma", Language: "English", Country: "United States", Gender: "Female", VoicePersonalities: "Warm, Friendly", Voice: "en-US-EmmaNeural"},
	{Artist: "Brian", Language: "English", Country: "United States", Gender: "Male", VoicePersonalities: "Calm, Confident", Voice: "en-US-BrianNeural"},
	{Artist: "Sonia", Language: "English", Country: "United Kingdom", Gender: "Female", VoicePersonalities: "Clear, Professional", Voice: "en-GB-SoniaNeural"},
	{Artist: "Denise", Language: "French", Country: "France", Gender: "Female", VoicePersonalities: "Soft, Pleasant", Voice: "fr-FR-DeniseNeural"},
}

// FetchFunc retrieves the full catalog from the provider.
type FetchFunc func(ctx context.Context) ([]synthesis.Voice, error)

// Catalog is a process-wide, time-bounded copy of the provider's voice list.
// Concurrent refreshes are not deduplicated; the overwrite is idempotent and
// at most one redundant upstream call is tolerated.
type Catalog struct {
	mu        sync.Mutex
	entries   []synthesis.Voice
	fetchedAt time.Time

	ttl    time.Duration
	now    func() time.Time
	fetch  FetchFunc
	logger *log.Logger
}

// NewCatalog creates a catalog backed by the given fetch function.
func NewCatalog(fetch FetchFunc, ttl time.Duration, logger *log.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		ttl:    ttl,
		now:    time.Now,
		fetch:  fetch,
		logger: logger,
	}
}

// Voices returns the cached catalog, refreshed if stale, filtered for the
// caller's tier. The returned slice is owned by the caller.
func (c *Catalog) Voices(ctx context.Context, premium bool) []synthesis.Voice {
	entries := c.resolve(ctx)

	out := make([]synthesis.Voice, 0, len(entries))
	for _, v := range entries {
		if !premium && premiumLanguages[v.Language] {
			continue
		}
		out = append(out, v)
	}
	return out
}

// resolve returns the current entries, fetching from the provider when the
// cache is empty or older than the TTL. A failed fetch falls back to the
// stale entries if any, else to the built-in static list; the list endpoint
// stays available even when the provider does not.
func (c *Catalog) resolve(ctx context.Context) []synthesis.Voice {
	c.mu.Lock()
	entries := c.entries
	fresh := len(entries) > 0 && c.now().Sub(c.fetchedAt) <= c.ttl
	c.mu.Unlock()

	if fresh {
		return entries
	}

	fetched, err := c.fetch(ctx)
	if err != nil || len(fetched) == 0 {
		c.logger.Printf("voices: catalog fetch failed (%d entries): %v", len(fetched), err)
		if len(entries) > 0 {
			return entries
		}
		return fallbackVoices
	}

	c.mu.Lock()
	c.entries = fetched
	c.fetchedAt = c.now()
	c.mu.Unlock()

	return fetched
}
