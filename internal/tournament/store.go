package tournament

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a new TournamentStore.
func New(db *sql.DB) TournamentStore {
	return &store{
		db: db,
	}
}

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v %w", kind, id, ErrNotFound)
}

func (s *store) CreatePlayer(ctx context.Context, name string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "INSERT INTO players (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Player{ID: id, Name: name}, nil
}

func (s *store) GetPlayer(ctx context.Context, id int64) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p Player
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM players WHERE id = ?", id).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("player", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return &p, nil
}

func (s *store) CreateSetup(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "INSERT INTO setups (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create setup: %w", err)
	}
	return res.LastInsertId()
}

func (s *store) CreatePhase(ctx context.Context, name string, rulesetID *int64) (*Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "INSERT INTO phases (name, ruleset_id) VALUES (?, ?)", name, rulesetID)
	if err != nil {
		return nil, fmt.Errorf("failed to create phase: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Phase{ID: id, Name: name, RulesetID: rulesetID, MatchIDs: []int64{}}, nil
}

func (s *store) GetPhase(ctx context.Context, id int64) (*Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		phase     Phase
		rulesetID sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, "SELECT id, name, ruleset_id FROM phases WHERE id = ?", id).
		Scan(&phase.ID, &phase.Name, &rulesetID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("phase", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phase %d: %w", id, err)
	}
	if rulesetID.Valid {
		phase.RulesetID = &rulesetID.Int64
	}

	phase.MatchIDs, err = s.phaseMatchIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	return &phase, nil
}

func (s *store) phaseMatchIDs(ctx context.Context, phaseID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM matches WHERE phase_id = ? ORDER BY id", phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of phase %d: %w", phaseID, err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *store) SetPhaseRuleset(ctx context.Context, phaseID int64, rulesetID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE phases SET ruleset_id = ? WHERE id = ?", rulesetID, phaseID)
	if err != nil {
		return fmt.Errorf("failed to set ruleset of phase %d: %w", phaseID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("phase", phaseID)
	}
	return nil
}

func (s *store) CreateMatch(ctx context.Context, phaseID int64, name string, playerIDs []int64) (*Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO matches (phase_id, name) VALUES (?, ?)", phaseID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	for _, playerID := range playerIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO match_players (match_id, player_id) VALUES (?, ?)", id, playerID); err != nil {
			return nil, fmt.Errorf("failed to add player %d to match %d: %w", playerID, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.getMatch(ctx, id)
}

func (s *store) GetMatch(ctx context.Context, id int64) (*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMatch(ctx, id)
}

// getMatch loads a match with its roster, rounds, standings and setup
// assignments. Every result set is drained before the next query is issued so
// the store works on a single connection.
func (s *store) getMatch(ctx context.Context, id int64) (*Match, error) {
	var match Match
	err := s.db.QueryRowContext(ctx, "SELECT id, phase_id, name FROM matches WHERE id = ?", id).
		Scan(&match.ID, &match.PhaseID, &match.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("match", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	if match.Players, err = s.matchPlayers(ctx, id); err != nil {
		return nil, err
	}
	if match.Rounds, err = s.matchRounds(ctx, id); err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *store) matchPlayers(ctx context.Context, matchID int64) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name
		FROM match_players mp
		JOIN players p ON p.id = mp.player_id
		WHERE mp.match_id = ?
		ORDER BY mp.rowid
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load players of match %d: %w", matchID, err)
	}
	defer rows.Close()

	players := []Player{}
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *store) matchRounds(ctx context.Context, matchID int64) ([]Round, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM rounds WHERE match_id = ? ORDER BY id", matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds of match %d: %w", matchID, err)
	}
	rounds := []Round{}
	index := make(map[int64]int)
	for rows.Next() {
		var r Round
		if err := rows.Scan(&r.ID); err != nil {
			rows.Close()
			return nil, err
		}
		r.Standings = []Standing{}
		r.Assignments = []SetupAssignment{}
		index[r.ID] = len(rounds)
		rounds = append(rounds, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rounds) == 0 {
		return rounds, nil
	}

	standingRows, err := s.db.QueryContext(ctx, `
		SELECT st.round_id, st.player_id, p.name, st.points, st.percentage, st.is_failed
		FROM standings st
		JOIN rounds r ON r.id = st.round_id
		LEFT JOIN players p ON p.id = st.player_id
		WHERE r.match_id = ?
		ORDER BY st.id
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load standings of match %d: %w", matchID, err)
	}
	for standingRows.Next() {
		var (
			roundID    int64
			playerID   sql.NullInt64
			playerName sql.NullString
			st         Standing
		)
		if err := standingRows.Scan(&roundID, &playerID, &playerName, &st.Points, &st.Score.Percentage, &st.Score.IsFailed); err != nil {
			standingRows.Close()
			return nil, err
		}
		if playerID.Valid {
			st.Player = &Player{ID: playerID.Int64, Name: playerName.String}
		}
		i := index[roundID]
		rounds[i].Standings = append(rounds[i].Standings, st)
	}
	standingRows.Close()
	if err := standingRows.Err(); err != nil {
		return nil, err
	}

	assignmentRows, err := s.db.QueryContext(ctx, `
		SELECT ma.round_id, ma.setup_id, ma.player_id
		FROM match_assignments ma
		JOIN rounds r ON r.id = ma.round_id
		WHERE r.match_id = ?
		ORDER BY ma.id
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load setup assignments of match %d: %w", matchID, err)
	}
	defer assignmentRows.Close()
	for assignmentRows.Next() {
		var (
			roundID  int64
			playerID sql.NullInt64
			a        SetupAssignment
		)
		if err := assignmentRows.Scan(&roundID, &a.SetupID, &playerID); err != nil {
			return nil, err
		}
		if playerID.Valid {
			a.PlayerID = &playerID.Int64
		}
		i := index[roundID]
		rounds[i].Assignments = append(rounds[i].Assignments, a)
	}
	return rounds, assignmentRows.Err()
}

// SaveMatch persists the match roster. Last write wins; there is no version check.
func (s *store) SaveMatch(ctx context.Context, match *Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE matches SET name = ? WHERE id = ?", match.Name, match.ID)
	if err != nil {
		return fmt.Errorf("failed to update match %d: %w", match.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("match", match.ID)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM match_players WHERE match_id = ?", match.ID); err != nil {
		return fmt.Errorf("failed to reset roster of match %d: %w", match.ID, err)
	}
	for _, p := range match.Players {
		if _, err := tx.ExecContext(ctx, "INSERT INTO match_players (match_id, player_id) VALUES (?, ?)", match.ID, p.ID); err != nil {
			return fmt.Errorf("failed to add player %d to match %d: %w", p.ID, match.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Debug("Saved match roster", "matchID", match.ID, "players", len(match.Players))
	return nil
}

func (s *store) PhaseMatches(ctx context.Context, phaseID int64) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.phaseMatchIDs(ctx, phaseID)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(ids))
	for _, id := range ids {
		m, err := s.getMatch(ctx, id)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, nil
}

func (s *store) AddRound(ctx context.Context, matchID int64, standings []Standing, setupIDs []int64) (*Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO rounds (match_id) VALUES (?)", matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to create round for match %d: %w", matchID, err)
	}
	roundID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	round := &Round{ID: roundID, Standings: standings, Assignments: []SetupAssignment{}}
	for _, st := range standings {
		var playerID *int64
		if st.Player != nil {
			playerID = &st.Player.ID
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO standings (round_id, player_id, points, percentage, is_failed) VALUES (?, ?, ?, ?, ?)",
			roundID, playerID, st.Points, st.Score.Percentage, st.Score.IsFailed)
		if err != nil {
			return nil, fmt.Errorf("failed to add standing to round %d: %w", roundID, err)
		}
	}
	for _, setupID := range setupIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO match_assignments (round_id, setup_id) VALUES (?, ?)", roundID, setupID); err != nil {
			return nil, fmt.Errorf("failed to assign setup %d to round %d: %w", setupID, roundID, err)
		}
		round.Assignments = append(round.Assignments, SetupAssignment{SetupID: setupID})
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return round, nil
}

func (s *store) CreateRuleset(ctx context.Context, ruleset *Ruleset) (*Ruleset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO rulesets (name, description, is_active, config, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		ruleset.Name, ruleset.Description, ruleset.IsActive, string(ruleset.Config), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to create ruleset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	created := *ruleset
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	log.Info("Created ruleset", "id", id, "name", ruleset.Name)
	return &created, nil
}

const rulesetColumns = "id, name, description, is_active, config, created_at, updated_at"

func scanRuleset(scanner interface{ Scan(...any) error }) (*Ruleset, error) {
	var (
		r           Ruleset
		description sql.NullString
		config      string
		createdAt   int64
		updatedAt   int64
	)
	if err := scanner.Scan(&r.ID, &r.Name, &description, &r.IsActive, &config, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Description = description.String
	r.Config = []byte(config)
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	r.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &r, nil
}

func (s *store) ListRulesets(ctx context.Context) ([]Ruleset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+rulesetColumns+" FROM rulesets ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list rulesets: %w", err)
	}
	defer rows.Close()

	rulesets := []Ruleset{}
	for rows.Next() {
		r, err := scanRuleset(rows)
		if err != nil {
			log.Error("Failed to scan ruleset row", "error", err)
			continue
		}
		rulesets = append(rulesets, *r)
	}
	return rulesets, rows.Err()
}

func (s *store) GetRuleset(ctx context.Context, id int64) (*Ruleset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getRuleset(ctx, id)
}

func (s *store) getRuleset(ctx context.Context, id int64) (*Ruleset, error) {
	r, err := scanRuleset(s.db.QueryRowContext(ctx, "SELECT "+rulesetColumns+" FROM rulesets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("ruleset", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ruleset %d: %w", id, err)
	}
	return r, nil
}

func (s *store) UpdateRuleset(ctx context.Context, id int64, update RulesetUpdate) (*Ruleset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.getRuleset(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		r.Name = *update.Name
	}
	if update.Description != nil {
		r.Description = *update.Description
	}
	if len(update.Config) > 0 {
		r.Config = update.Config
	}
	if update.IsActive != nil {
		r.IsActive = *update.IsActive
	}
	r.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	_, err = s.db.ExecContext(ctx,
		"UPDATE rulesets SET name = ?, description = ?, is_active = ?, config = ?, updated_at = ? WHERE id = ?",
		r.Name, r.Description, r.IsActive, string(r.Config), r.UpdatedAt.UnixMilli(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update ruleset %d: %w", id, err)
	}
	return r, nil
}

// DeleteRuleset unlinks the ruleset from every phase before removing it.
func (s *store) DeleteRuleset(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getRuleset(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE phases SET ruleset_id = NULL WHERE ruleset_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to unlink ruleset %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Info("Unlinked ruleset from phases", "rulesetID", id, "phases", n)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM rulesets WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete ruleset %d: %w", id, err)
	}
	return tx.Commit()
}

// SaveMany appends progression results in a single transaction and fills in
// the generated ids.
func (s *store) SaveMany(ctx context.Context, results []ProgressionResult) error {
	if len(results) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO phase_progression_results (
			run_id, phase_id, player_id, action, target_phase_id, target_match_id,
			ranking_position, tied_at_boundary, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range results {
		r := &results[i]
		res, err := stmt.ExecContext(ctx, r.RunID, r.PhaseID, r.PlayerID, string(r.Action), r.TargetPhaseID,
			r.TargetMatchID, r.RankingPosition, r.TiedAtBoundary, r.Reason, r.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to save progression result for player %d: %w", r.PlayerID, err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *store) ResultsByRun(ctx context.Context, runID string) ([]ProgressionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.run_id, r.phase_id, r.player_id, p.name, r.action, r.target_phase_id, r.target_match_id,
			r.ranking_position, r.tied_at_boundary, r.reason, r.created_at
		FROM phase_progression_results r
		JOIN players p ON p.id = r.player_id
		WHERE r.run_id = ?
		ORDER BY r.id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	defer rows.Close()

	results := []ProgressionResult{}
	for rows.Next() {
		var (
			r             ProgressionResult
			action        string
			targetPhaseID sql.NullInt64
			targetMatchID sql.NullInt64
			reason        sql.NullString
			createdAt     int64
		)
		err := rows.Scan(&r.ID, &r.RunID, &r.PhaseID, &r.PlayerID, &r.PlayerName, &action, &targetPhaseID,
			&targetMatchID, &r.RankingPosition, &r.TiedAtBoundary, &reason, &createdAt)
		if err != nil {
			return nil, err
		}
		r.Action = ProgressionAction(action)
		if targetPhaseID.Valid {
			r.TargetPhaseID = &targetPhaseID.Int64
		}
		if targetMatchID.Valid {
			r.TargetMatchID = &targetMatchID.Int64
		}
		r.Reason = reason.String
		r.CreatedAt = time.UnixMilli(createdAt).UTC()
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, notFound("run", runID)
	}
	return results, nil
}
