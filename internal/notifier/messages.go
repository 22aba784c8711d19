package notifier

import (
	"fmt"
	"strings"
)

// Side is one team as shown in match messages.
type Side struct {
	Name   string
	Rating int
}

// MatchInfo is the opening post in a match channel.
func MatchInfo(a, b Side, autoMatched bool) string {
	tag := "🎮 *MATCH START!*"
	if autoMatched {
		tag = "🤖 *AUTO-MATCHED!*"
	}
	diff := a.Rating - b.Rating
	if diff < 0 {
		diff = -diff
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n🔵 *%s* (%d) vs 🔴 *%s* (%d)\n", tag, a.Name, a.Rating, b.Name, b.Rating)
	fmt.Fprintf(&sb, "📊 Rating difference: %d points\n", diff)
	sb.WriteString("💬 Both captains must report the winner to finalize the match.")
	return sb.String()
}

// MatchFound is the announcement posted in the queue channel.
func MatchFound(a, b Side) string {
	return fmt.Sprintf("✅ Match Found! *%s* (%d) vs *%s* (%d)", a.Name, a.Rating, b.Name, b.Rating)
}

// CaptainMatched is the direct message sent to a captain whose team was paired.
func CaptainMatched(own string, opponent Side, channelRef string) string {
	return fmt.Sprintf("🎮 Your team *%s* has been matched!\n\n🆚 vs *%s* (%d)\n📍 %s", own, opponent.Name, opponent.Rating, channelRef)
}

// VoteRecorded acknowledges a single vote while the other side has not voted.
func VoteRecorded(votingTeam, votedWinner string) string {
	return fmt.Sprintf("🗳️ *%s* reported *%s* as the winner. Waiting for the other captain.", votingTeam, votedWinner)
}

// Dispute asks both captains to vote again.
func Dispute(round int) string {
	return fmt.Sprintf("⚠️ The captains reported different winners (dispute #%d). Votes were cleared, please report the result again.", round)
}

// Settlement is posted when a match is finalized.
func Settlement(winner, loser Side, winnerChange, loserChange int) string {
	return fmt.Sprintf("🏆 *%s* defeated *%s*\n📈 %s: %d (%+d)\n📉 %s: %d (%+d)\nThis channel will close shortly.",
		winner.Name, loser.Name, winner.Name, winner.Rating, winnerChange, loser.Name, loser.Rating, loserChange)
}

// QueueLine is one waiting team in the status display.
type QueueLine struct {
	Name        string
	Rating      int
	WaitMinutes int
	Range       int
}

// QueueStatus renders the pool display for a group.
func QueueStatus(lines []QueueLine, pollEvery string) string {
	var sb strings.Builder
	sb.WriteString("📋 *Match Queue*\n")
	if len(lines) == 0 {
		sb.WriteString("No teams in queue.\n⏳ Waiting for teams...\n")
	} else {
		for i, l := range lines {
			fmt.Fprintf(&sb, "%d. *%s* - %d (⏱️ %dm, 📊 ±%d)\n", i+1, l.Name, l.Rating, l.WaitMinutes, l.Range)
		}
		sb.WriteString("⏳ Finding matches...\n")
	}
	fmt.Fprintf(&sb, "👥 Teams in queue: %d | 🤖 Auto-polling every %s", len(lines), pollEvery)
	return sb.String()
}

// QueueClosed replaces the status display once a group's queue is closed.
func QueueClosed() string {
	return "🔒 *Match Queue* is closed."
}

// ChannelName builds the match channel name, capped at maxLen characters.
func ChannelName(a, b string, maxLen int) string {
	name := "match-" + slug(a) + "-vs-" + slug(b)
	if r := []rune(name); len(r) > maxLen {
		name = string(r[:maxLen])
	}
	return name
}

func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
