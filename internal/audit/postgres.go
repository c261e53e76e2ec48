package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// SinkConfig contains audit sink configuration.
type SinkConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	Retention       time.Duration `yaml:"retention" mapstructure:"retention"`
	PurgeInterval   time.Duration `yaml:"purge_interval" mapstructure:"purge_interval"`
}

// PostgresSink persists audit records to PostgreSQL. Expiry is enforced by a
// background purge loop that deletes rows past their TTL.
type PostgresSink struct {
	db     *sqlx.DB
	logger *zap.Logger
	done   chan struct{}
}

// NewPostgresSink connects to the database and ensures the audit table
// exists.
func NewPostgresSink(cfg SinkConfig, logger *zap.Logger) (*PostgresSink, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	sink := &PostgresSink{
		db:     db,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := sink.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit sink: %w", err)
	}

	logger.Info("Audit sink initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Duration("retention", cfg.Retention))

	return sink, nil
}

func (s *PostgresSink) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS audit_records (
			request_id  TEXT PRIMARY KEY,
			created_at  BIGINT NOT NULL,
			ttl         BIGINT NOT NULL,
			cv_hash     TEXT NOT NULL,
			rule_counts JSONB NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure audit table: %w", err)
	}

	return nil
}

// Write persists one audit record keyed by request ID.
func (s *PostgresSink) Write(ctx context.Context, rec Record) error {
	counts, err := json.Marshal(rec.RuleCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal rule counts: %w", err)
	}

	query := `
		INSERT INTO audit_records (request_id, created_at, ttl, cv_hash, rule_counts)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (request_id) DO UPDATE
		SET created_at = EXCLUDED.created_at,
		    ttl = EXCLUDED.ttl,
		    cv_hash = EXCLUDED.cv_hash,
		    rule_counts = EXCLUDED.rule_counts`

	if _, err := s.db.ExecContext(ctx, query,
		rec.RequestID, rec.CreatedAt, rec.TTL, rec.CVHash, counts); err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}

	s.logger.Debug("Audit record written",
		zap.String("request_id", rec.RequestID),
		zap.Int64("ttl", rec.TTL))

	return nil
}

// StartPurgeLoop starts a background routine that deletes expired records.
func (s *PostgresSink) StartPurgeLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.purgeExpired()
			case <-s.done:
				return
			}
		}
	}()
}

func (s *PostgresSink) purgeExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_records WHERE ttl <= $1`, time.Now().Unix())
	if err != nil {
		s.logger.Error("Audit purge failed", zap.Error(err))
		return
	}

	if deleted, err := res.RowsAffected(); err == nil && deleted > 0 {
		s.logger.Info("Expired audit records purged", zap.Int64("deleted", deleted))
	}
}

// Close stops the purge loop and closes the database connection.
func (s *PostgresSink) Close() error {
	close(s.done)
	return s.db.Close()
}

// maskDatabaseURL masks credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if idx := strings.LastIndex(userPart, ":"); idx > strings.Index(userPart, "//") {
				parts[0] = userPart[:idx] + ":***"
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
