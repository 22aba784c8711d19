package ladder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// store persists the ladder in SQL tables created by the database migrations.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ Store = (*store)(nil)

// New creates a SQL backed Store.
func New(db *sql.DB) Store {
	return &store{db: db}
}

func (s *store) LoadTeams(ctx context.Context) (map[string]Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, name, captain_id, members_json, rating, wins, losses, created_at
		FROM teams`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	teams := make(map[string]Team)
	for rows.Next() {
		var (
			team        Team
			captainID   sql.NullString
			membersJSON string
			createdAt   int64
		)
		if err := rows.Scan(&team.Key, &team.Name, &captainID, &membersJSON, &team.Rating, &team.Wins, &team.Losses, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		if captainID.Valid {
			id := captainID.String
			team.CaptainID = &id
		}
		if err := json.Unmarshal([]byte(membersJSON), &team.Members); err != nil {
			log.Warn("Failed to unmarshal team members", "team", team.Key, "error", err)
		}
		if team.Members == nil {
			team.Members = []string{}
		}
		team.CreatedAt = time.UnixMilli(createdAt)
		teams[team.Key] = team
	}
	return teams, rows.Err()
}

func (s *store) SaveTeams(ctx context.Context, teams map[string]Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM teams"); err != nil {
		return fmt.Errorf("failed to clear teams: %w", err)
	}
	for _, team := range teams {
		if err := upsertTeam(ctx, tx, team); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit teams: %w", err)
	}
	log.Debug("Saved teams", "count", len(teams))
	return nil
}

func upsertTeam(ctx context.Context, tx *sql.Tx, team Team) error {
	members := team.Members
	if members == nil {
		members = []string{}
	}
	membersJSON, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("failed to marshal members for %s: %w", team.Key, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO teams (key, name, captain_id, members_json, rating, wins, losses, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			captain_id = excluded.captain_id,
			members_json = excluded.members_json,
			rating = excluded.rating,
			wins = excluded.wins,
			losses = excluded.losses`,
		team.Key, team.Name, team.CaptainID, string(membersJSON), team.Rating, team.Wins, team.Losses, team.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save team %s: %w", team.Key, err)
	}
	return nil
}

func (s *store) LoadQueue(ctx context.Context, groupID string) ([]QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT team_key, captain_id, rating, added_at FROM queue_entries
		WHERE group_id = ? ORDER BY position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	entries := []QueueEntry{}
	for rows.Next() {
		var e QueueEntry
		var addedAt int64
		if err := rows.Scan(&e.TeamKey, &e.CaptainID, &e.Rating, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		e.AddedAt = time.UnixMilli(addedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *store) SaveQueue(ctx context.Context, groupID string, entries []QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]AutoQueueEntry, len(entries))
	for i, e := range entries {
		rows[i] = AutoQueueEntry(e)
	}
	return s.replaceEntries(ctx, "queue_entries", groupID, rows)
}

func (s *store) QueueGroups(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT group_id FROM queue_entries ORDER BY group_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query queue groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("failed to scan queue group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *store) LoadPool(ctx context.Context, groupID string) ([]AutoQueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT team_key, captain_id, rating, added_at FROM pool_entries
		WHERE group_id = ? ORDER BY position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool: %w", err)
	}
	defer rows.Close()

	entries := []AutoQueueEntry{}
	for rows.Next() {
		var e AutoQueueEntry
		var addedAt int64
		if err := rows.Scan(&e.TeamKey, &e.CaptainID, &e.Rating, &addedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pool entry: %w", err)
		}
		e.AddedAt = time.UnixMilli(addedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *store) SavePool(ctx context.Context, groupID string, entries []AutoQueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceEntries(ctx, "pool_entries", groupID, entries)
}

// replaceEntries rewrites one group's rows of a queue table. table is never user supplied.
func (s *store) replaceEntries(ctx context.Context, table, groupID string, entries []AutoQueueEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" (group_id, position, team_key, captain_id, rating, added_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, groupID, i, e.TeamKey, e.CaptainID, e.Rating, e.AddedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", table, err)
	}
	log.Debug("Saved queue entries", "table", table, "group", groupID, "count", len(entries))
	return nil
}

func (s *store) LoadConfig(ctx context.Context, groupID string) (*QueueConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT group_id, enabled, queue_channel_id, results_channel_id, status_message_id, started_at
		FROM queue_configs WHERE group_id = ?`, groupID)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue config: %w", err)
	}
	return cfg, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConfig(row scanner) (*QueueConfig, error) {
	var cfg QueueConfig
	var startedAt int64
	if err := row.Scan(&cfg.GroupID, &cfg.Enabled, &cfg.QueueChannelID, &cfg.ResultsChannelID, &cfg.StatusMessageID, &startedAt); err != nil {
		return nil, err
	}
	cfg.StartedAt = time.UnixMilli(startedAt)
	return &cfg, nil
}

func (s *store) SaveConfig(ctx context.Context, cfg QueueConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO queue_configs (group_id, enabled, queue_channel_id, results_channel_id, status_message_id, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			enabled = excluded.enabled,
			queue_channel_id = excluded.queue_channel_id,
			results_channel_id = excluded.results_channel_id,
			status_message_id = excluded.status_message_id,
			started_at = excluded.started_at`,
		cfg.GroupID, cfg.Enabled, cfg.QueueChannelID, cfg.ResultsChannelID, cfg.StatusMessageID, cfg.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save queue config: %w", err)
	}
	return nil
}

func (s *store) ListConfigs(ctx context.Context) ([]QueueConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, enabled, queue_channel_id, results_channel_id, status_message_id, started_at
		FROM queue_configs ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue configs: %w", err)
	}
	defer rows.Close()

	var configs []QueueConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue config: %w", err)
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

func (s *store) LoadHistory(ctx context.Context) ([]MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team1, team2, winner, winner_rating_change, loser_rating_change, completed_at
		FROM match_history ORDER BY completed_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query match history: %w", err)
	}
	defer rows.Close()

	records := []MatchRecord{}
	for rows.Next() {
		var r MatchRecord
		var completedAt int64
		if err := rows.Scan(&r.ID, &r.Team1, &r.Team2, &r.Winner, &r.WinnerRatingChange, &r.LoserRatingChange, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match record: %w", err)
		}
		r.CompletedAt = time.UnixMilli(completedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *store) AppendHistory(ctx context.Context, record MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := insertRecord(ctx, tx, record); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRecord(ctx context.Context, tx *sql.Tx, r MatchRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO match_history (id, team1, team2, winner, winner_rating_change, loser_rating_change, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Team1, r.Team2, r.Winner, r.WinnerRatingChange, r.LoserRatingChange, r.CompletedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append match record: %w", err)
	}
	return nil
}

func (s *store) RecordSettlement(ctx context.Context, teams []Team, record MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, team := range teams {
		if err := upsertTeam(ctx, tx, team); err != nil {
			return err
		}
	}
	if err := insertRecord(ctx, tx, record); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}
	log.Info("Recorded settlement", "matchID", record.ID, "winner", record.Winner)
	return nil
}

func (s *store) SaveMatchStart(ctx context.Context, start MatchStart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_starts (id, group_id, team1, team2, channel_id, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		start.ID, start.GroupID, start.Team1, start.Team2, start.ChannelID, string(start.Status), start.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save match start: %w", err)
	}
	log.Info("Saved match start", "matchID", start.ID, "group", start.GroupID)
	return nil
}

func (s *store) CompleteMatchStart(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE match_starts SET status = ?, completed_at = ? WHERE id = ?",
		string(MatchStartCompleted), at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to complete match start: %w", err)
	}
	return nil
}

func (s *store) ListMatchStarts(ctx context.Context) ([]MatchStart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, team1, team2, channel_id, status, created_at, completed_at
		FROM match_starts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query match starts: %w", err)
	}
	defer rows.Close()

	var starts []MatchStart
	for rows.Next() {
		var (
			m           MatchStart
			status      string
			createdAt   int64
			completedAt sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.GroupID, &m.Team1, &m.Team2, &m.ChannelID, &status, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match start: %w", err)
		}
		m.Status = MatchStartStatus(status)
		m.CreatedAt = time.UnixMilli(createdAt)
		if completedAt.Valid {
			at := time.UnixMilli(completedAt.Int64)
			m.CompletedAt = &at
		}
		starts = append(starts, m)
	}
	return starts, rows.Err()
}
