package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Config contains configuration for the audit trail.
type Config struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default audit trail configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:         "data/warden_audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	at INTEGER NOT NULL,
	kind TEXT NOT NULL,
	caller_id TEXT,
	role TEXT,
	purpose TEXT,
	provider TEXT,
	slot_id TEXT,
	reason TEXT,
	estimated_tokens INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_decisions_at ON decisions(at);
CREATE INDEX IF NOT EXISTS idx_decisions_kind ON decisions(kind, at);
CREATE INDEX IF NOT EXISTS idx_decisions_provider ON decisions(provider, at);
`

// Trail is an append-only SQLite log of admission and failover
// decisions. Every grant, denial, forced fallback, failover resolution,
// circuit transition, and stale reclaim is one row.
type Trail struct {
	db        *sql.DB
	config    *Config
	logger    *slog.Logger
	closeOnce sync.Once
	mu        sync.RWMutex
}

// NewTrail opens (or creates) the audit database and initializes its
// schema.
func NewTrail(config *Config) (*Trail, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "audit")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	t := &Trail{db: db, config: config, logger: logger}

	if err := t.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit trail initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return t, nil
}

func (t *Trail) initialize() error {
	if t.config.WALMode {
		if _, err := t.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := t.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", t.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := t.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record appends one decision. A missing ID or timestamp is filled in.
func (t *Trail) Record(ctx context.Context, d Decision) error {
	if d.Kind == "" {
		return fmt.Errorf("decision kind cannot be empty")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.At.IsZero() {
		d.At = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO decisions
			(id, at, kind, caller_id, role, purpose, provider, slot_id, reason, estimated_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.At.UnixMilli(), d.Kind,
		nullable(d.CallerID), nullable(d.Role), nullable(d.Purpose),
		nullable(d.Provider), nullable(d.SlotID), nullable(d.Reason),
		d.EstimatedTokens,
	)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}
	return nil
}

// Query returns decisions matching the filter, newest first.
func (t *Trail) Query(ctx context.Context, f Filter) ([]Decision, error) {
	var (
		conds []string
		args  []any
	)
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Provider != "" {
		conds = append(conds, "provider = ?")
		args = append(args, f.Provider)
	}
	if !f.From.IsZero() {
		conds = append(conds, "at >= ?")
		args = append(args, f.From.UnixMilli())
	}
	if !f.To.IsZero() {
		conds = append(conds, "at <= ?")
		args = append(args, f.To.UnixMilli())
	}

	query := "SELECT id, at, kind, caller_id, role, purpose, provider, slot_id, reason, estimated_tokens FROM decisions"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var (
			d                                                 Decision
			at                                                int64
			callerID, role, purpose, provider, slotID, reason sql.NullString
		)
		if err := rows.Scan(&d.ID, &at, &d.Kind, &callerID, &role, &purpose, &provider, &slotID, &reason, &d.EstimatedTokens); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		d.At = time.UnixMilli(at)
		d.CallerID = callerID.String
		d.Role = role.String
		d.Purpose = purpose.String
		d.Provider = provider.String
		d.SlotID = slotID.String
		d.Reason = reason.String
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return out, nil
}

// Prune deletes decisions older than the given time and returns how
// many were removed.
func (t *Trail) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	result, err := t.db.ExecContext(ctx, "DELETE FROM decisions WHERE at < ?", olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune decisions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if deleted > 0 {
		t.logger.Info("audit records pruned", "deleted", deleted, "older_than", olderThan)
	}
	return int(deleted), nil
}

// Close releases the database. Close is idempotent.
func (t *Trail) Close() error {
	var closeErr error
	t.closeOnce.Do(func() {
		closeErr = t.db.Close()
	})
	return closeErr
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
