package game

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bunny-chase/internal/protocol"
)

// TestJournalWritesJSONLines verifies events reach disk in order after Stop.
func TestJournalWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.jsonl")
	j := NewJournal()
	require.NoError(t, j.Start(path))

	assert.True(t, j.Record(EventTypeRoundStart, 1, protocol.RoleBunny, RoundStartPayload{Round: 1, Movement: "tank"}))
	assert.True(t, j.Record(EventTypeCollect, 40, protocol.RoleBunny, CollectPayload{Index: 3, Collected: 1}))
	assert.True(t, j.Record(EventTypeRoundEnd, 90, protocol.RoleBunny, RoundEndPayload{Round: 1, Winner: protocol.RoleBobcat}))
	j.Stop()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var types []string
	var seqs []uint64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line struct {
			Type     string `json:"type"`
			Sequence uint64 `json:"sequence"`
			Tick     uint64 `json:"tick"`
			Role     string `json:"role"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		types = append(types, line.Type)
		seqs = append(seqs, line.Sequence)
		assert.Equal(t, "bunny", line.Role)
	}
	assert.Equal(t, []string{"round_start", "collect", "round_end"}, types)
	assert.Equal(t, []uint64{0, 1, 2}, seqs)
	assert.Equal(t, JournalStats{Total: 3}, j.Stats())
}

// TestJournalRejectsWhenStopped verifies events are refused outside Start
// and Stop.
func TestJournalRejectsWhenStopped(t *testing.T) {
	j := NewJournal()
	assert.False(t, j.Record(EventTypeCollect, 1, protocol.RoleBunny, nil))
	require.NoError(t, j.Start(""))
	j.Stop()
	j.Stop()
	assert.False(t, j.Record(EventTypeCollect, 1, protocol.RoleBunny, nil))
}

// TestJournalRateLimited verifies a burst beyond the limiter is dropped.
func TestJournalRateLimited(t *testing.T) {
	j := NewJournal()
	require.NoError(t, j.Start(""))
	defer j.Stop()

	accepted := 0
	for i := 0; i < 1000; i++ {
		if j.Record(EventTypeCollect, uint64(i), protocol.RoleBunny, nil) {
			accepted++
		}
	}
	assert.Less(t, accepted, 1000)
	assert.Equal(t, uint64(1000-accepted), j.Stats().Dropped)
}

// TestNilJournal verifies a nil journal is inert.
func TestNilJournal(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Start("ignored"))
	assert.False(t, j.Record(EventTypeCollect, 1, protocol.RoleBunny, nil))
	assert.Equal(t, JournalStats{}, j.Stats())
	j.Stop()
}

func TestEventTypeNames(t *testing.T) {
	assert.Equal(t, "collect", EventTypeCollect.String())
	assert.Equal(t, "unknown", EventType(200).String())
}
