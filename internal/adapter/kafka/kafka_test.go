package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
	"github.com/couchcryptid/rain-alert-service/internal/governor"
)

func TestSerializeReport(t *testing.T) {
	finished := time.Date(2026, 7, 14, 10, 0, 0, 0, time.UTC)
	r := &governor.Report{
		CycleID:    "cycle-1",
		StartedAt:  finished.Add(-2 * time.Second),
		FinishedAt: finished,
		Decisions: []governor.Decision{
			{
				AreaID:  "nbhd-kukatpally",
				Scope:   domain.ScopeNow,
				Bucket:  domain.BucketHeavy,
				Outcome: governor.OutcomePosted,
				Score:   152.5,
			},
			{
				AreaID:  "dist-warangal",
				Scope:   domain.ScopeToday,
				Bucket:  domain.BucketModerate,
				Outcome: governor.OutcomeRejectedCooldown,
			},
		},
	}

	msg, err := serializeReport(r)
	require.NoError(t, err)

	assert.Equal(t, []byte("cycle-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"outcome":"posted"`)
	assert.Contains(t, string(msg.Value), `"outcome":"rejected_cooldown"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "decisions", msg.Headers[0].Key)
	assert.Equal(t, []byte("2"), msg.Headers[0].Value)
	assert.Equal(t, "finished_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(finished.Format(time.RFC3339)), msg.Headers[1].Value)
}
