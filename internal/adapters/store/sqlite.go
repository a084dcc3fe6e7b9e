// internal/adapters/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"proxylens/internal/core/domain"
	"proxylens/internal/core/usecases"
	"proxylens/internal/platform/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	total        INTEGER NOT NULL,
	clean        INTEGER NOT NULL,
	detected     INTEGER NOT NULL,
	filtered     INTEGER NOT NULL,
	errors       INTEGER NOT NULL,
	skipped      INTEGER NOT NULL,
	avg_abuse    REAL,
	elapsed_ms   INTEGER NOT NULL,
	finished_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	id             TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL,
	idx            INTEGER NOT NULL,
	proxy          TEXT NOT NULL,
	exit_ip        TEXT,
	status         TEXT NOT NULL,
	classification TEXT,
	confidence     REAL,
	abuser_score   REAL,
	filtered       INTEGER NOT NULL,
	error          TEXT,
	elapsed_ms     INTEGER NOT NULL,
	verdict_json   TEXT,
	intel_json     TEXT,
	created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id, idx);
`

const insertResult = `
INSERT INTO results (id, run_id, idx, proxy, exit_ip, status, classification, confidence,
	abuser_score, filtered, error, elapsed_ms, verdict_json, intel_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// StoredResult es una fila de la tabla results.
type StoredResult struct {
	ID             string
	RunID          string
	Index          int
	Proxy          string
	ExitIP         string
	Status         string
	Classification string
	Confidence     float64
	AbuserScore    sql.NullFloat64
	Filtered       bool
	Error          string
	Elapsed        time.Duration
	Intel          *domain.IPIntel
}

// Store persiste los resultados bulk en SQLite. Implementa ports.ResultSink.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	insert *sql.Stmt
	now    func() time.Time
	logger logx.Logger
}

// Open abre (o crea) la base de datos en path y aplica el esquema.
func Open(ctx context.Context, path string, logger logx.Logger) (*Store, error) {
	if logger == nil {
		logger = logx.NewSilent()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Un único escritor; evita SQLITE_BUSY entre conexiones del pool
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	insert, err := db.PrepareContext(ctx, insertResult)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare insert: %w", err)
	}

	s := &Store{
		db:     db,
		insert: insert,
		now:    time.Now,
		logger: logger.With("component", "sqlite-store"),
	}
	s.logger.Debug("results store opened", "path", path)
	return s, nil
}

// Write implementa ports.ResultSink.
func (s *Store) Write(ctx context.Context, rec *domain.ScanRecord) error {
	var (
		classification sql.NullString
		confidence     sql.NullFloat64
		abuse          sql.NullFloat64
		errText        sql.NullString
		verdictJSON    sql.NullString
		intelJSON      sql.NullString
		exitIP         sql.NullString
	)

	if ip := rec.ExitIP(); ip != "" {
		exitIP = sql.NullString{String: ip, Valid: true}
	}
	if rec.Report != nil {
		v := rec.Report.Verdict
		classification = sql.NullString{String: string(v.Classification), Valid: true}
		confidence = sql.NullFloat64{Float64: v.Confidence, Valid: true}
		if len(v.Raw) > 0 {
			verdictJSON = sql.NullString{String: string(v.Raw), Valid: true}
		}
	}
	if rec.Intel != nil {
		abuse = sql.NullFloat64{Float64: rec.Intel.AbuserScore, Valid: true}
		data, err := json.Marshal(rec.Intel)
		if err != nil {
			return fmt.Errorf("store: encode intel: %w", err)
		}
		intelJSON = sql.NullString{String: string(data), Valid: true}
	}
	if rec.Err != nil {
		errText = sql.NullString{String: rec.Err.Error(), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.insert.ExecContext(ctx,
		uuid.NewString(), rec.RunID, rec.Index, rec.Proxy, exitIP, rec.Status(),
		classification, confidence, abuse, rec.Filtered, errText,
		rec.Elapsed.Milliseconds(), verdictJSON, intelJSON, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: insert result: %w", err)
	}
	return nil
}

// SaveSummary guarda (o reemplaza) el resumen de un escaneo.
func (s *Store) SaveSummary(ctx context.Context, sum usecases.Summary) error {
	var avg sql.NullFloat64
	if v, ok := sum.AvgAbuserScore(); ok {
		avg = sql.NullFloat64{Float64: v, Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (run_id, total, clean, detected, filtered, errors, skipped, avg_abuse, elapsed_ms, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Total, sum.Clean, sum.Detected, sum.Filtered, sum.Errors, sum.Skipped,
		avg, sum.Elapsed.Milliseconds(), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store: save summary: %w", err)
	}
	return nil
}

// Results retorna los resultados de un escaneo en orden de lista.
func (s *Store) Results(ctx context.Context, runID string) ([]StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, run_id, idx, proxy, exit_ip, status, classification, confidence,
	abuser_score, filtered, error, elapsed_ms, intel_json
FROM results WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var (
			r              StoredResult
			exitIP         sql.NullString
			classification sql.NullString
			confidence     sql.NullFloat64
			errText        sql.NullString
			elapsedMS      int64
			intelJSON      sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Index, &r.Proxy, &exitIP, &r.Status,
			&classification, &confidence, &r.AbuserScore, &r.Filtered, &errText,
			&elapsedMS, &intelJSON); err != nil {
			return nil, fmt.Errorf("store: scan result: %w", err)
		}
		r.ExitIP = exitIP.String
		r.Classification = classification.String
		r.Confidence = confidence.Float64
		r.Error = errText.String
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if intelJSON.Valid {
			r.Intel = &domain.IPIntel{}
			if err := json.Unmarshal([]byte(intelJSON.String), r.Intel); err != nil {
				return nil, fmt.Errorf("store: decode intel: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close libera la sentencia preparada y la base de datos.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insert != nil {
		s.insert.Close()
		s.insert = nil
	}
	return s.db.Close()
}
