// Package store persists the observed transition graph: T1 states as nodes
// and telemetry transitions as edges with full rollout context. It is the
// single source of truth the dynamics report is rebuilt from.
//
// The store follows a single-writer discipline: batch writes are atomic per
// call, concurrent readers are safe, and multiple writers against the same
// file must be serialized by the caller.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"swarmdyn/internal/logging"
	"swarmdyn/internal/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS states (
    state_id  TEXT PRIMARY KEY,
    domain    TEXT,
    job_type  TEXT,
    data_json TEXT
);

CREATE TABLE IF NOT EXISTS transitions (
    transition_id        TEXT PRIMARY KEY,
    rollout_id           TEXT,
    workcell_id          TEXT,
    issue_id             TEXT,
    job_type             TEXT,
    toolchain            TEXT,
    transition_kind      TEXT,
    from_state           TEXT NOT NULL REFERENCES states(state_id),
    to_state             TEXT NOT NULL REFERENCES states(state_id),
    timestamp            TEXT,
    action_tool          TEXT,
    action_command_class TEXT,
    action_domain        TEXT,
    context_json         TEXT,
    observations_json    TEXT
);
CREATE INDEX IF NOT EXISTS idx_transitions_from ON transitions(from_state);
CREATE INDEX IF NOT EXISTS idx_transitions_to ON transitions(to_state);
`

// Action describes what the agent did to cause a transition.
type Action struct {
	Tool         string `json:"tool"`
	CommandClass string `json:"command_class"`
	Domain       string `json:"domain"`
}

// Transition is one observed state-to-state move from the telemetry pipeline.
// From and To carry full payloads; inserting a transition upserts both
// endpoint states.
type Transition struct {
	TransitionID   string
	RolloutID      string
	WorkcellID     string
	IssueID        string
	JobType        string
	Toolchain      string
	TransitionKind string
	From           state.Payload
	To             state.Payload
	Timestamp      time.Time
	Action         Action
	Context        map[string]string
	Observations   map[string]any
}

// TransitionCount is an aggregated (from, to, count) row.
type TransitionCount struct {
	From  string
	To    string
	Count int64
}

// TransitionProb is one row of the empirical transition matrix: the fraction
// of observed moves out of From that went to To.
type TransitionProb struct {
	From        string
	To          string
	Count       int64
	Probability float64
}

// Store manages the states and transitions tables.
type Store struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open initializes the SQLite database at the given path, creating the
// backing directory and schema on first use.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	log := logging.Get(logging.CategoryStore)

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debugw("pragma failed", "pragma", pragma, "error", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debugw("transition store opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the backing database path.
func (s *Store) Path() string {
	return s.path
}

// InsertState idempotently upserts a state row.
func (s *Store) InsertState(p state.Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertState(s.db, p)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertState(db execer, p state.Payload) error {
	if p.StateID == "" {
		return fmt.Errorf("invalid state: empty state_id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal state payload: %w", err)
	}
	_, err = db.Exec(
		`INSERT OR REPLACE INTO states (state_id, domain, job_type, data_json) VALUES (?, ?, ?, ?)`,
		p.StateID, p.Domain, p.JobType, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert state %s: %w", p.StateID, err)
	}
	return nil
}

func insertTransition(db execer, t Transition) error {
	if t.From.StateID == "" || t.To.StateID == "" {
		return fmt.Errorf("invalid transition: endpoints must carry state ids")
	}
	if err := insertState(db, t.From); err != nil {
		return err
	}
	if err := insertState(db, t.To); err != nil {
		return err
	}

	id := t.TransitionID
	if id == "" {
		id = uuid.NewString()
	}
	contextJSON, err := json.Marshal(t.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal transition context: %w", err)
	}
	obsJSON, err := json.Marshal(t.Observations)
	if err != nil {
		return fmt.Errorf("failed to marshal transition observations: %w", err)
	}
	var ts string
	if !t.Timestamp.IsZero() {
		ts = t.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	_, err = db.Exec(
		`INSERT OR REPLACE INTO transitions
		 (transition_id, rollout_id, workcell_id, issue_id, job_type, toolchain, transition_kind,
		  from_state, to_state, timestamp, action_tool, action_command_class, action_domain,
		  context_json, observations_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.RolloutID, t.WorkcellID, t.IssueID, t.JobType, t.Toolchain, t.TransitionKind,
		t.From.StateID, t.To.StateID, ts, t.Action.Tool, t.Action.CommandClass, t.Action.Domain,
		string(contextJSON), string(obsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transition %s: %w", id, err)
	}
	return nil
}

// InsertTransition records a single transition, upserting both endpoint
// states. A transition with a duplicate id replaces the previous row.
func (s *Store) InsertTransition(t Transition) error {
	return s.InsertTransitions([]Transition{t})
}

// InsertTransitions records a batch of transitions as a single transaction:
// either every row commits or none do.
func (s *Store) InsertTransitions(batch []Transition) error {
	if len(batch) == 0 {
		return nil
	}
	timer := logging.StartTimer(logging.CategoryStore, "InsertTransitions")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, t := range batch {
		if err := insertTransition(tx, t); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transition batch: %w", err)
	}
	logging.Get(logging.CategoryStore).Debugw("transition batch committed", "rows", len(batch))
	return nil
}

// LoadStates returns every registered state payload keyed by id. Corrupt rows
// degrade to an empty payload carrying only the id, with a warning; read
// failures degrade to an empty map. Callers are never crashed by this method.
func (s *Store) LoadStates() map[string]state.Payload {
	timer := logging.StartTimer(logging.CategoryStore, "LoadStates")
	defer timer.Stop()

	log := logging.Get(logging.CategoryStore)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]state.Payload)
	rows, err := s.db.Query(`SELECT state_id, data_json FROM states`)
	if err != nil {
		log.Errorw("failed to load states", "error", err)
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			log.Warnw("state row scan failed", "error", err)
			continue
		}
		var p state.Payload
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			log.Warnw("corrupt state payload, degrading to empty", "state_id", id, "error", err)
			p = state.Payload{StateID: id}
		}
		if p.StateID == "" {
			p.StateID = id
		}
		out[id] = p
	}
	if err := rows.Err(); err != nil {
		log.Warnw("state iteration ended early", "error", err)
	}
	return out
}

// TransitionCounts aggregates transitions into (from, to, count) rows sorted
// by count descending. limit <= 0 returns all rows. Read failures degrade to
// an empty slice.
func (s *Store) TransitionCounts(limit int) []TransitionCount {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logging.Get(logging.CategoryStore)

	query := `SELECT from_state, to_state, COUNT(*) AS n
	          FROM transitions
	          GROUP BY from_state, to_state
	          ORDER BY n DESC, from_state ASC, to_state ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		log.Errorw("failed to aggregate transition counts", "error", err)
		return nil
	}
	defer rows.Close()

	var out []TransitionCount
	for rows.Next() {
		var tc TransitionCount
		if err := rows.Scan(&tc.From, &tc.To, &tc.Count); err != nil {
			log.Warnw("transition count scan failed", "error", err)
			continue
		}
		out = append(out, tc)
	}
	return out
}

// TransitionProbabilities returns the empirical transition matrix: each row's
// probability is its count divided by the total count out of the same source
// state. Rows are sorted by count descending; limit <= 0 returns all rows.
func (s *Store) TransitionProbabilities(limit int) []TransitionProb {
	counts := s.TransitionCounts(0)
	if len(counts) == 0 {
		return nil
	}

	totals := make(map[string]int64, len(counts))
	for _, tc := range counts {
		totals[tc.From] += tc.Count
	}

	out := make([]TransitionProb, 0, len(counts))
	for _, tc := range counts {
		out = append(out, TransitionProb{
			From:        tc.From,
			To:          tc.To,
			Count:       tc.Count,
			Probability: float64(tc.Count) / float64(totals[tc.From]),
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TransitionWindow returns the min and max transition timestamps. ok is false
// when the store holds no timestamped transitions.
func (s *Store) TransitionWindow() (since, until time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var minTS, maxTS sql.NullString
	err := s.db.QueryRow(
		`SELECT MIN(timestamp), MAX(timestamp) FROM transitions WHERE timestamp IS NOT NULL AND timestamp != ''`,
	).Scan(&minTS, &maxTS)
	if err != nil {
		logging.Get(logging.CategoryStore).Warnw("failed to read transition window", "error", err)
		return time.Time{}, time.Time{}, false
	}
	if !minTS.Valid || !maxTS.Valid {
		return time.Time{}, time.Time{}, false
	}

	since, err = time.Parse(time.RFC3339Nano, minTS.String)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	until, err = time.Parse(time.RFC3339Nano, maxTS.String)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return since, until, true
}

// Stats returns row counts per table.
func (s *Store) Stats() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"states", "transitions"} {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			logging.Get(logging.CategoryStore).Debugw("table count failed", "table", table, "error", err)
			continue
		}
		stats[table] = count
	}
	return stats
}
