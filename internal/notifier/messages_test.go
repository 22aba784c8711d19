package notifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelName(t *testing.T) {
	assert.Equal(t, "match-red-team-vs-blue", ChannelName("Red Team", "BLUE", 100))

	long := strings.Repeat("x", 120)
	name := ChannelName(long, "b", 100)
	assert.Len(t, name, 100)
	assert.True(t, strings.HasPrefix(name, "match-xxx"))
}

func TestMatchInfo(t *testing.T) {
	msg := MatchInfo(Side{Name: "Alpha", Rating: 1000}, Side{Name: "Beta", Rating: 1080}, true)
	assert.Contains(t, msg, "AUTO-MATCHED")
	assert.Contains(t, msg, "Rating difference: 80 points")

	manual := MatchInfo(Side{Name: "Alpha", Rating: 1000}, Side{Name: "Beta", Rating: 1000}, false)
	assert.Contains(t, manual, "MATCH START")
}

func TestQueueStatus(t *testing.T) {
	empty := QueueStatus(nil, "3s")
	assert.Contains(t, empty, "No teams in queue")
	assert.Contains(t, empty, "Teams in queue: 0")

	msg := QueueStatus([]QueueLine{{Name: "Alpha", Rating: 1000, WaitMinutes: 2, Range: 225}}, "3s")
	assert.Contains(t, msg, "1. *Alpha* - 1000 (⏱️ 2m, 📊 ±225)")
	assert.Contains(t, msg, "Auto-polling every 3s")
}

func TestSettlement(t *testing.T) {
	msg := Settlement(Side{Name: "Alpha", Rating: 1016}, Side{Name: "Beta", Rating: 984}, 16, -16)
	assert.Contains(t, msg, "Alpha: 1016 (+16)")
	assert.Contains(t, msg, "Beta: 984 (-16)")
}
