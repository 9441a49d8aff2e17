package storage

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/instadm-pro/internal/campaign"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndReadOutcomes(t *testing.T) {
	store := newTestStore(t)
	campaignID := uuid.New()

	require.NoError(t, store.StartRun(campaignID))

	outcomes := []campaign.LeadOutcome{
		{AccountUsername: "acct1", LeadHandle: "alice", Succeeded: true, Detail: "Message sent successfully", SequenceIndex: 1},
		{AccountUsername: "acct1", LeadHandle: "bob", Succeeded: false, Detail: "Message button not found on profile", SequenceIndex: 2},
	}
	for _, outcome := range outcomes {
		require.NoError(t, store.RecordOutcome(campaignID, outcome))
	}
	require.NoError(t, store.FinishRun(campaignID, 1, 1))

	got, err := store.Outcomes(campaignID)
	require.NoError(t, err)
	assert.Equal(t, outcomes, got)
}

func TestOutcomesAreScopedToRun(t *testing.T) {
	store := newTestStore(t)
	runA, runB := uuid.New(), uuid.New()

	require.NoError(t, store.StartRun(runA))
	require.NoError(t, store.StartRun(runB))
	require.NoError(t, store.RecordOutcome(runA, campaign.LeadOutcome{
		AccountUsername: "acct1", LeadHandle: "alice", Succeeded: true, SequenceIndex: 1,
	}))

	got, err := store.Outcomes(runB)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHasContacted(t *testing.T) {
	store := newTestStore(t)
	campaignID := uuid.New()
	require.NoError(t, store.StartRun(campaignID))

	require.NoError(t, store.RecordOutcome(campaignID, campaign.LeadOutcome{
		AccountUsername: "acct1", LeadHandle: "alice", Succeeded: true, SequenceIndex: 1,
	}))
	require.NoError(t, store.RecordOutcome(campaignID, campaign.LeadOutcome{
		AccountUsername: "acct1", LeadHandle: "bob", Succeeded: false, SequenceIndex: 2,
	}))

	contacted, err := store.HasContacted("alice")
	require.NoError(t, err)
	assert.True(t, contacted)

	// A failed attempt does not count as contacted.
	contacted, err = store.HasContacted("bob")
	require.NoError(t, err)
	assert.False(t, contacted)
}

func TestGetStats(t *testing.T) {
	store := newTestStore(t)
	campaignID := uuid.New()
	require.NoError(t, store.StartRun(campaignID))
	require.NoError(t, store.RecordOutcome(campaignID, campaign.LeadOutcome{
		AccountUsername: "acct1", LeadHandle: "alice", Succeeded: true, SequenceIndex: 1,
	}))

	stats, err := store.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats["total_runs"])
	assert.Equal(t, 1, stats["total_outcomes"])
	assert.Equal(t, 1, stats["total_sent"])
	assert.Equal(t, 1, stats["sent_today"])
}
