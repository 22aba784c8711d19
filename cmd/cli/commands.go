package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd, metricsCmd, teamCmd, leaderboardCmd, rankCmd, historyCmd,
		queueCmd, poolCmd, groupCmd, voteCmd, matchesCmd, resetSeasonCmd)

	teamCmd.AddCommand(teamCreateCmd, teamInfoCmd, teamAddCmd, teamRemoveCmd, teamCaptainCmd, teamRatingCmd, teamClearCmd)
	teamClearCmd.Flags().Bool("confirm", false, "Confirm deleting every team")

	queueCmd.AddCommand(queueJoinCmd, queueLeaveCmd, queueStatusCmd)
	poolCmd.AddCommand(poolJoinCmd, poolLeaveCmd)

	groupCmd.AddCommand(groupSetupCmd, groupCloseCmd, groupTickCmd)
	groupSetupCmd.Flags().String("results", "", "Channel id for settlement announcements")

	historyCmd.Flags().Int("limit", 0, "Number of matches to show")
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health", nil)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics", nil)
	},
}

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage teams",
}

var teamCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/teams", map[string]string{"name": args[0]})
	},
}

var teamInfoCmd = &cobra.Command{
	Use:   "info <team>",
	Short: "Show a team",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/teams/info", url.Values{"team": {args[0]}})
	},
}

var teamAddCmd = &cobra.Command{
	Use:   "add <team> <member>",
	Short: "Add a member to a team (captain only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/teams/members", map[string]string{"team": args[0], "user_id": userID, "member": args[1]})
	},
}

var teamRemoveCmd = &cobra.Command{
	Use:   "remove <team> <member>",
	Short: "Remove a member from a team (captain only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodDelete, "/teams/members", map[string]string{"team": args[0], "user_id": userID, "member": args[1]})
	},
}

var teamCaptainCmd = &cobra.Command{
	Use:   "captain <team> <user>",
	Short: "Set a team's captain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/teams/captain", map[string]string{"team": args[0], "captain": args[1]})
	},
}

var teamRatingCmd = &cobra.Command{
	Use:   "rating <team> <rating>",
	Short: "Override a team's rating",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid rating %q: %w", args[1], err)
		}
		return performPostRequest(http.MethodPost, "/teams/rating", map[string]any{"team": args[0], "rating": value})
	},
}

var teamClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every team and empty all queues",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		return performPostRequest(http.MethodPost, "/teams/clear", map[string]bool{"confirm": confirm})
	},
}

var resetSeasonCmd = &cobra.Command{
	Use:   "reset-season",
	Short: "Reset ratings and records, archiving match history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/season/reset", struct{}{})
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/leaderboard", nil)
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank [team]",
	Short: "Show a team's rank, or the rank of the --user's team",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return performGetRequest("/rank", url.Values{"team": {args[0]}})
		}
		return performGetRequest("/rank", url.Values{"user_id": {userID}})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <team>",
	Short: "Show a team's recent matches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{"team": {args[0]}}
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			q.Set("limit", strconv.Itoa(limit))
		}
		return performGetRequest("/history", q)
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Use the manual queue",
}

var queueJoinCmd = &cobra.Command{
	Use:   "join <team>",
	Short: "Join the manual queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/queue/join", queueBody(args[0]))
	},
}

var queueLeaveCmd = &cobra.Command{
	Use:   "leave <team>",
	Short: "Leave the manual queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/queue/leave", queueBody(args[0]))
	},
}

var queueStatusCmd = &cobra.Command{
	Use:   "status <team>",
	Short: "Show where a team waits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/teamqueue", url.Values{"group_id": {group}, "team": {args[0]}})
	},
}

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Use the automatic matchmaking pool",
}

var poolJoinCmd = &cobra.Command{
	Use:   "join <team>",
	Short: "Join the automatic pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/pool/join", queueBody(args[0]))
	},
}

var poolLeaveCmd = &cobra.Command{
	Use:   "leave <team>",
	Short: "Leave the automatic pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/pool/leave", queueBody(args[0]))
	},
}

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Configure automatic matchmaking for a group",
}

var groupSetupCmd = &cobra.Command{
	Use:   "setup <queue-channel>",
	Short: "Enable automatic matchmaking in a channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, _ := cmd.Flags().GetString("results")
		return performPostRequest(http.MethodPost, "/groups/setup", map[string]string{
			"group_id":           group,
			"queue_channel_id":   args[0],
			"results_channel_id": results,
		})
	},
}

var groupCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Disable automatic matchmaking and empty the pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/groups/close", map[string]string{"group_id": group})
	},
}

var groupTickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run one matching pass now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/groups/tick", map[string]string{"group_id": group})
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <match-id> <voting-team> <winner>",
	Short: "Report a match winner as a captain",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return performPostRequest(http.MethodPost, "/matches/vote", map[string]string{
			"match_id":     args[0],
			"voting_team":  args[1],
			"voted_winner": args[2],
			"user_id":      userID,
		})
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List matches awaiting results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/matches/active", nil)
	},
}

func queueBody(team string) map[string]string {
	return map[string]string{"group_id": group, "team": team, "user_id": userID}
}

func performGetRequest(endpoint string, query url.Values) error {
	target := host + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	fmt.Printf("Making request to %s\n", target)

	resp, err := http.Get(target)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	return printResponse(resp)
}

func performPostRequest(method, endpoint string, body any) error {
	target := host + endpoint
	fmt.Printf("Making %s request to %s\n", method, target)

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	req, err := http.NewRequest(method, target, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
