// Package querylog persists one row per answered question to Postgres.
// It is an optional analytics sink: an empty DSN disables it entirely,
// and write failures are logged but never surfaced to the caller.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/tamadze/tamada/config"
	"github.com/tamadze/tamada/taskqueue"
)

const (
	connectTimeout = 5 * time.Second
	insertTimeout  = 5 * time.Second
)

// Entry is one answered question. Zero ID and Timestamp are filled in
// by Record.
type Entry struct {
	ID               string
	Timestamp        time.Time
	Query            string
	DetectedLanguage string
	TargetLanguage   string
	Intent           string
	ResultsCount     int
	AnswerChars      int
	TotalTokens      int
	ProcessingMS     int64
	ErrorType        string
}

// Logger writes entries to a single Postgres table. Inserts go through
// the background queue when one is attached, so the answer path never
// waits on the database. All methods are safe on a nil Logger.
type Logger struct {
	db        *sql.DB
	queue     *taskqueue.Queue
	insertSQL string
}

// New opens the Postgres log and bootstraps its table. An empty DSN
// means logging is disabled and New returns (nil, nil).
func New(cfg config.QueryLogConfig, queue *taskqueue.Queue) (*Logger, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	table := cfg.Table
	if table == "" {
		table = "query_log"
	}
	if !validTableName(table) {
		return nil, fmt.Errorf("query log: invalid table name %q", table)
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open query log database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach query log database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL(table)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create query log table: %w", err)
	}

	slog.Info("Query log enabled", "table", table)
	return &Logger{db: db, queue: queue, insertSQL: insertSQL(table)}, nil
}

// Record persists one entry. With a queue attached the insert runs in
// the background; without one it runs inline with a short deadline.
func (l *Logger) Record(e Entry) {
	if l == nil || l.db == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	insert := func(ctx context.Context) error {
		if err := l.insert(ctx, e); err != nil {
			return fmt.Errorf("failed to insert query log row: %w", err)
		}
		return nil
	}

	if l.queue != nil && l.queue.Enqueue("query_log_insert", insert) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	if err := insert(ctx); err != nil {
		slog.Error("Query log write failed", "error", err)
	}
}

func (l *Logger) insert(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx, l.insertSQL,
		e.ID,
		e.Timestamp,
		e.Query,
		e.DetectedLanguage,
		e.TargetLanguage,
		e.Intent,
		e.ResultsCount,
		e.AnswerChars,
		e.TotalTokens,
		e.ProcessingMS,
		nullString(e.ErrorType),
	)
	return err
}

// Close releases the database handle.
func (l *Logger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func schemaSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id                TEXT PRIMARY KEY,
	ts                TIMESTAMPTZ NOT NULL,
	query             TEXT NOT NULL,
	detected_language TEXT,
	target_language   TEXT,
	intent            TEXT,
	results_count     INTEGER NOT NULL DEFAULT 0,
	answer_chars      INTEGER NOT NULL DEFAULT 0,
	total_tokens      INTEGER NOT NULL DEFAULT 0,
	processing_ms     BIGINT NOT NULL DEFAULT 0,
	error_type        TEXT
)`, table)
}

func insertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s
	(id, ts, query, detected_language, target_language, intent,
	 results_count, answer_chars, total_tokens, processing_ms, error_type)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, table)
}

// validTableName accepts plain snake_case identifiers. The table name
// is interpolated into DDL, so anything fancier is rejected.
func validTableName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
