package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDiscardClient(t *testing.T) {
	c := New("")
	require.NoError(t, c.SendMessage(EventMatchSettled, MatchEvent{MatchID: "m1"}))

	sent := MatchEvent{Type: EventMatchSettled, MatchID: "m1", Winner: "alpha", WinnerRatingChange: 16, LoserRatingChange: -16, OccurredAt: time.UnixMilli(1_700_000_000_000)}
	data, err := msgpack.Marshal(sent)
	require.NoError(t, err)

	var got MatchEvent
	require.NoError(t, c.ProcessMessage(data, &got))
	assert.Equal(t, "alpha", got.Winner)
	assert.Equal(t, -16, got.LoserRatingChange)
	assert.True(t, sent.OccurredAt.Equal(got.OccurredAt))

	assert.Error(t, c.ProcessMessage([]byte{0xc1}, &got))
}
