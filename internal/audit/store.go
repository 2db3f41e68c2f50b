// Package audit keeps an append-only trail of engine runs in Postgres.
// Records are content-free by construction: a SHA-256 of the input, the mode,
// per-root-type entity counts and timings. Original values, redacted text and
// placeholder mappings are never written.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/anoncore/anoncore/internal/config"
	"github.com/anoncore/anoncore/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_audit (
	id            BIGSERIAL PRIMARY KEY,
	run_id        TEXT        NOT NULL,
	mode          TEXT        NOT NULL,
	text_hash     TEXT        NOT NULL,
	entity_counts JSONB       NOT NULL DEFAULT '{}',
	duration_ms   BIGINT      NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Counts holds per-root-type entity counts, stored as a JSONB column.
type Counts map[string]int

// Value implements driver.Valuer.
func (c Counts) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *Counts) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported entity_counts type %T", src)
	}
}

// Record is one audited engine run.
type Record struct {
	ID           int64     `db:"id" json:"id"`
	RunID        string    `db:"run_id" json:"run_id"`
	Mode         string    `db:"mode" json:"mode"`
	TextHash     string    `db:"text_hash" json:"text_hash"`
	EntityCounts Counts    `db:"entity_counts" json:"entity_counts"`
	DurationMS   int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Stats summarizes the audit trail for the info endpoint.
type Stats struct {
	TotalRuns     int64 `db:"total_runs" json:"total_runs"`
	AnonRuns      int64 `db:"anon_runs" json:"anon_runs"`
	RevertRuns    int64 `db:"revert_runs" json:"revert_runs"`
	TotalEntities int64 `db:"-" json:"total_entities"`
}

// Store handles audit persistence with PostgreSQL.
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewStore connects to Postgres and ensures the audit table exists.
func NewStore(cfg config.AuditConfig, log *logger.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db, logger: log}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}

	log.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return store, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	return nil
}

// Insert appends a single audit record.
func (s *Store) Insert(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO run_audit (run_id, mode, text_hash, entity_counts, duration_ms)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		record.RunID,
		record.Mode,
		record.TextHash,
		record.EntityCounts,
		record.DurationMS,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		s.logger.Error("Failed to insert audit record",
			zap.Error(err),
			zap.String("run_id", record.RunID),
			zap.String("mode", record.Mode))
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	s.logger.Debug("Audit record inserted",
		zap.Int64("id", record.ID),
		zap.String("run_id", record.RunID))

	return nil
}

// BatchInsert appends multiple audit records in one statement; used by the
// batch pipeline.
func (s *Store) BatchInsert(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(records))
	valueArgs := make([]interface{}, 0, len(records)*5)
	for i, r := range records {
		base := i * 5
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		valueArgs = append(valueArgs, r.RunID, r.Mode, r.TextHash, r.EntityCounts, r.DurationMS)
	}

	query := fmt.Sprintf(
		"INSERT INTO run_audit (run_id, mode, text_hash, entity_counts, duration_ms) VALUES %s",
		strings.Join(valueStrings, ", "))

	if _, err := s.db.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("failed to batch insert audit records: %w", err)
	}

	s.logger.Debug("Audit records inserted", zap.Int("count", len(records)))
	return nil
}

// GetStats returns run totals for the info endpoint.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	query := `
		SELECT
			COUNT(*) AS total_runs,
			COUNT(*) FILTER (WHERE mode = 'ANON') AS anon_runs,
			COUNT(*) FILTER (WHERE mode = 'REVERT') AS revert_runs
		FROM run_audit`

	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to query audit stats: %w", err)
	}

	return &stats, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// HashText computes the SHA-256 digest stored instead of document content.
func HashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// maskDatabaseURL hides credentials before they reach the log stream.
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "postgres://***"
	}
	if u.User != nil {
		u.User = url.UserPassword("***", "***")
	}
	return u.String()
}
