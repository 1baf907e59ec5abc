package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/resolvd/llm-governor/models"
	"github.com/resolvd/llm-governor/services/gateway"
	"go.uber.org/zap"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Service journals per-request spend and latency rows to PostgreSQL
// for external analysis. The in-memory budget ledger remains the gate;
// this journal is observability only and its failures never fail a
// request.
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService creates a usage journal over an existing connection pool
func NewService(db *sql.DB, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// Open creates a connection pool for the journal database
func Open(dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping usage database: %w", err)
	}

	logger.Info("usage journal database connected")
	return db, nil
}

// RecordRequest inserts one journal row. Implements
// gateway.UsageRecorder.
func (s *Service) RecordRequest(ctx context.Context, rec gateway.UsageRecord) error {
	query := `
		INSERT INTO usage_journal
		(correlation_id, identity, provider, model, tokens_used, cost_micro, success, error_kind, latency_ms, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.CorrelationID, rec.Identity, rec.Provider, rec.Model,
		rec.TokensUsed, int64(rec.Cost), rec.Success, rec.ErrorKind,
		rec.LatencyMs, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert usage row: %w", err)
	}

	return nil
}

// DaySummary is the aggregated spend for one day
type DaySummary struct {
	TotalCost    models.MicroUSD
	RequestCount int64
	SuccessCount int64
}

// SummaryForDay returns the aggregated spend recorded on the given day
func (s *Service) SummaryForDay(ctx context.Context, day time.Time) (*DaySummary, error) {
	query := `
		SELECT COALESCE(SUM(cost_micro), 0), COUNT(*), COUNT(*) FILTER (WHERE success)
		FROM usage_journal
		WHERE DATE(recorded_at) = $1
	`

	var summary DaySummary
	var total int64
	err := s.db.QueryRowContext(ctx, query, day.Format("2006-01-02")).
		Scan(&total, &summary.RequestCount, &summary.SuccessCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query day summary: %w", err)
	}
	summary.TotalCost = models.MicroUSD(total)

	return &summary, nil
}

// CleanupOldRows removes journal rows older than the retention period
func (s *Service) CleanupOldRows(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM usage_journal WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup usage journal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("cleaned up old usage rows",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("cutoff", cutoff))

	return rowsAffected, nil
}

// StartCleanupWorker periodically prunes old journal rows until the
// context is cancelled
func (s *Service) StartCleanupWorker(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("started usage cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention))

	for {
		select {
		case <-ticker.C:
			if _, err := s.CleanupOldRows(ctx, retention); err != nil {
				s.logger.Error("failed to cleanup usage rows", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping usage cleanup worker")
			return
		}
	}
}
