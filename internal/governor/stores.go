package governor

import (
	"context"
	"time"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

// KeyValueStore backs the volatile governance state: the cycle lease, dedup
// hashes, and daily budget counters. Implementations must be safe for use
// from a single cycle at a time; read-after-write consistency within one
// cycle is required.
type KeyValueStore interface {
	// SetIfAbsent stores key=value with a TTL only if the key does not
	// exist. Returns true when the value was stored.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// IncrWithExpiry increments a counter, setting the TTL on first
	// increment, and returns the new value.
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// TTL returns the remaining lifetime of a key, or zero if absent.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// PostResult is the tri-state outcome recorded for every published decision.
// The original system recorded dry runs and failed posts identically (null
// post id); the log keeps them distinct.
type PostResult string

const (
	ResultPosted PostResult = "posted"
	ResultDryRun PostResult = "dry_run"
	ResultFailed PostResult = "failed"
)

// LogEntry is one row of the append-only decision log — the sole durable
// source of truth for cooldown, escalation, and hourly-rate state.
type LogEntry struct {
	AreaID      string
	Scope       domain.Scope
	Bucket      domain.Bucket
	WindowLabel string
	WindowStart *time.Time
	WindowEnd   *time.Time
	Hash        string
	PostID      *string
	Result      PostResult
	CreatedAt   time.Time
}

// DecisionLog is the append-only log store.
type DecisionLog interface {
	Append(ctx context.Context, e LogEntry) error
	MostRecent(ctx context.Context, areaID string) (*LogEntry, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// Poster submits one post to the external publishing collaborator.
// replyToID threads the post under a previous one when non-empty.
type Poster interface {
	Post(ctx context.Context, text, replyToID string) (postID string, err error)
}

// Formatter renders a structured payload as bilingual text. May fail; the
// governor then falls back to the deterministic formatter.
type Formatter interface {
	Format(ctx context.Context, p domain.NotifyPayload) (domain.BilingualText, error)
}
