package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS cycles (
	cycle_id           TEXT PRIMARY KEY,
	input              TEXT NOT NULL,
	mode               TEXT NOT NULL,
	recorded_at        TEXT NOT NULL,
	duration_ns        INTEGER NOT NULL,
	success_count      INTEGER NOT NULL,
	failure_count      INTEGER NOT NULL,
	average_confidence REAL NOT NULL,
	consensus_reached  INTEGER NOT NULL DEFAULT 0,
	errors_json        TEXT,
	consensus_json     TEXT NOT NULL,
	overall_health     REAL NOT NULL,
	hallucinations     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS perspectives (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id       TEXT NOT NULL,
	position       INTEGER NOT NULL,
	persona_id     TEXT NOT NULL,
	backend_id     TEXT NOT NULL,
	content        TEXT NOT NULL,
	confidence     REAL NOT NULL,
	created_at     TEXT NOT NULL,
	selection_json TEXT,
	FOREIGN KEY (cycle_id) REFERENCES cycles(cycle_id)
);

CREATE TABLE IF NOT EXISTS analyses (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id            TEXT NOT NULL,
	position            INTEGER NOT NULL,
	persona_id          TEXT NOT NULL,
	hallucinated        INTEGER NOT NULL DEFAULT 0,
	deviation_score     REAL NOT NULL,
	consensus_alignment REAL NOT NULL,
	severity            TEXT NOT NULL,
	correction_prompt   TEXT,
	learning_note       TEXT,
	analyzed_at         TEXT NOT NULL,
	FOREIGN KEY (cycle_id) REFERENCES cycles(cycle_id)
);

CREATE TABLE IF NOT EXISTS learning_notes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id    TEXT NOT NULL,
	persona_id  TEXT NOT NULL,
	severity    TEXT NOT NULL,
	deviation   REAL NOT NULL,
	note        TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (cycle_id) REFERENCES cycles(cycle_id)
);

CREATE INDEX IF NOT EXISTS idx_learning_notes_persona
ON learning_notes(persona_id, created_at);
`

// #endregion schema

// #region store-struct
// SQLiteStore keeps cycle records in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// #endregion store-struct

// #region constructor
// NewSQLiteStore opens the database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{db: db, logger: logger.Named("memory")}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region record-cycle
// RecordCycle writes the cycle, its perspectives, analyses and learning
// notes in one transaction.
func (s *SQLiteStore) RecordCycle(ctx context.Context, rec CycleRecord) error {
	act := rec.Activation
	errorsJSON, err := json.Marshal(act.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	consensusJSON, err := json.Marshal(rec.Consensus)
	if err != nil {
		return fmt.Errorf("marshal consensus: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cycles
		(cycle_id, input, mode, recorded_at, duration_ns, success_count, failure_count,
		 average_confidence, consensus_reached, errors_json, consensus_json, overall_health, hallucinations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID,
		act.Input,
		string(act.Mode),
		formatTime(rec.RecordedAt),
		int64(act.Duration),
		act.SuccessCount,
		act.FailureCount,
		act.AverageConfidence,
		boolInt(act.ConsensusReached),
		string(errorsJSON),
		string(consensusJSON),
		rec.OverallHealth,
		rec.HallucinationCount,
	)
	if err != nil {
		return fmt.Errorf("insert cycle %s: %w", rec.CycleID, err)
	}

	for i, p := range act.Perspectives {
		var selectionJSON sql.NullString
		if p.Selection != nil {
			b, err := json.Marshal(p.Selection)
			if err != nil {
				return fmt.Errorf("marshal selection: %w", err)
			}
			selectionJSON = sql.NullString{String: string(b), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO perspectives
			(cycle_id, position, persona_id, backend_id, content, confidence, created_at, selection_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.CycleID, i, p.PersonaID, p.BackendID, p.Content, p.Confidence,
			formatTime(p.CreatedAt), selectionJSON,
		)
		if err != nil {
			return fmt.Errorf("insert perspective %s: %w", p.PersonaID, err)
		}
	}

	for i, a := range rec.Analyses {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO analyses
			(cycle_id, position, persona_id, hallucinated, deviation_score, consensus_alignment,
			 severity, correction_prompt, learning_note, analyzed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.CycleID, i, a.PersonaID, boolInt(a.Hallucinated), a.DeviationScore,
			a.ConsensusAlignment, string(a.Severity), a.CorrectionPrompt, a.LearningNote,
			formatTime(a.AnalyzedAt),
		)
		if err != nil {
			return fmt.Errorf("insert analysis %s: %w", a.PersonaID, err)
		}
	}

	notes := rec.LearningNotes()
	for _, n := range notes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO learning_notes (cycle_id, persona_id, severity, deviation, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			n.CycleID, n.PersonaID, string(n.Severity), n.Deviation, n.Note, formatTime(n.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert learning note %s: %w", n.PersonaID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("cycle recorded",
		zap.String("cycle_id", rec.CycleID),
		zap.Int("perspectives", len(act.Perspectives)),
		zap.Int("learning_notes", len(notes)))
	return nil
}

// #endregion record-cycle

// #region list-cycles
// ListCycles returns cycle summaries, newest first.
func (s *SQLiteStore) ListCycles(ctx context.Context, limit int) ([]CycleSummary, error) {
	query := `
		SELECT c.cycle_id, c.input, c.mode, c.recorded_at, c.success_count, c.failure_count,
		       c.consensus_json, c.overall_health, c.hallucinations
		FROM cycles c
		ORDER BY c.recorded_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleSummary
	for rows.Next() {
		var sum CycleSummary
		var mode, recordedAt, consensusJSON string
		if err := rows.Scan(&sum.CycleID, &sum.Input, &mode, &recordedAt, &sum.SuccessCount,
			&sum.FailureCount, &consensusJSON, &sum.OverallHealth, &sum.HallucinationCount); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		var cons crew.ConsensusResult
		if err := json.Unmarshal([]byte(consensusJSON), &cons); err != nil {
			return nil, fmt.Errorf("unmarshal consensus: %w", err)
		}
		sum.Mode = crew.ActivationMode(mode)
		sum.RecordedAt = parseTime(recordedAt)
		sum.AgreementScore = cons.AgreementScore
		sum.DominantPersona = cons.DominantPersona
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion list-cycles

// #region get-cycle
// GetCycle rebuilds a full record.
func (s *SQLiteStore) GetCycle(ctx context.Context, cycleID string) (CycleRecord, error) {
	rec := CycleRecord{CycleID: cycleID}
	act := &rec.Activation
	var mode, recordedAt, consensusJSON string
	var durationNS int64
	var consensusReached int
	var errorsJSON sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT input, mode, recorded_at, duration_ns, success_count, failure_count,
		       average_confidence, consensus_reached, errors_json, consensus_json,
		       overall_health, hallucinations
		FROM cycles WHERE cycle_id = ?`, cycleID,
	).Scan(&act.Input, &mode, &recordedAt, &durationNS, &act.SuccessCount, &act.FailureCount,
		&act.AverageConfidence, &consensusReached, &errorsJSON, &consensusJSON,
		&rec.OverallHealth, &rec.HallucinationCount)
	if errors.Is(err, sql.ErrNoRows) {
		return CycleRecord{}, fmt.Errorf("get cycle %s: %w", cycleID, ErrCycleNotFound)
	}
	if err != nil {
		return CycleRecord{}, fmt.Errorf("get cycle %s: %w", cycleID, err)
	}

	act.CycleID = cycleID
	act.Mode = crew.ActivationMode(mode)
	act.Duration = time.Duration(durationNS)
	act.ConsensusReached = consensusReached == 1
	rec.RecordedAt = parseTime(recordedAt)
	if errorsJSON.Valid {
		if err := json.Unmarshal([]byte(errorsJSON.String), &act.Errors); err != nil {
			return CycleRecord{}, fmt.Errorf("unmarshal errors: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(consensusJSON), &rec.Consensus); err != nil {
		return CycleRecord{}, fmt.Errorf("unmarshal consensus: %w", err)
	}

	if act.Perspectives, err = s.perspectives(ctx, cycleID, act.Input); err != nil {
		return CycleRecord{}, err
	}
	if rec.Analyses, err = s.analyses(ctx, cycleID); err != nil {
		return CycleRecord{}, err
	}
	return rec, nil
}

func (s *SQLiteStore) perspectives(ctx context.Context, cycleID, input string) ([]crew.Perspective, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT persona_id, backend_id, content, confidence, created_at, selection_json
		FROM perspectives WHERE cycle_id = ? ORDER BY position`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("query perspectives: %w", err)
	}
	defer rows.Close()

	var out []crew.Perspective
	for rows.Next() {
		p := crew.Perspective{Input: input}
		var createdAt string
		var selectionJSON sql.NullString
		if err := rows.Scan(&p.PersonaID, &p.BackendID, &p.Content, &p.Confidence, &createdAt, &selectionJSON); err != nil {
			return nil, fmt.Errorf("scan perspective: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		if selectionJSON.Valid {
			p.Selection = &crew.SelectionRecord{}
			if err := json.Unmarshal([]byte(selectionJSON.String), p.Selection); err != nil {
				return nil, fmt.Errorf("unmarshal selection: %w", err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) analyses(ctx context.Context, cycleID string) ([]crew.PerspectiveAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT persona_id, hallucinated, deviation_score, consensus_alignment, severity,
		       correction_prompt, learning_note, analyzed_at
		FROM analyses WHERE cycle_id = ? ORDER BY position`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []crew.PerspectiveAnalysis
	for rows.Next() {
		var a crew.PerspectiveAnalysis
		var hallucinated int
		var severity, analyzedAt string
		var prompt, note sql.NullString
		if err := rows.Scan(&a.PersonaID, &hallucinated, &a.DeviationScore, &a.ConsensusAlignment,
			&severity, &prompt, &note, &analyzedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		a.Hallucinated = hallucinated == 1
		a.Severity = crew.Severity(severity)
		a.CorrectionPrompt = prompt.String
		a.LearningNote = note.String
		a.AnalyzedAt = parseTime(analyzedAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// #endregion get-cycle

// #region learning-notes
// LearningNotes returns the persona's notes, newest first.
func (s *SQLiteStore) LearningNotes(ctx context.Context, personaID string, limit int) ([]LearningNote, error) {
	query := `
		SELECT cycle_id, persona_id, severity, deviation, note, created_at
		FROM learning_notes WHERE persona_id = ?
		ORDER BY created_at DESC, id DESC`
	args := []any{personaID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query learning notes: %w", err)
	}
	defer rows.Close()

	var out []LearningNote
	for rows.Next() {
		var n LearningNote
		var severity, createdAt string
		if err := rows.Scan(&n.CycleID, &n.PersonaID, &severity, &n.Deviation, &n.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan learning note: %w", err)
		}
		n.Severity = crew.Severity(severity)
		n.CreatedAt = parseTime(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// #endregion learning-notes

// #region helpers
// Timestamps are stored as fixed-width UTC strings so that text ordering
// matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
