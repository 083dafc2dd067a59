package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"veracity-service/internal/models"
	"veracity-service/internal/record"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// RecordRepository stores analysis records and batch jobs
type RecordRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRecordRepository opens the database and applies migrations
func NewRecordRepository(dbType, dsn string, logger *zap.Logger) (*RecordRepository, error) {
	db, err := Open(dbType, dsn, logger)
	if err != nil {
		return nil, err
	}
	return &RecordRepository{db: db, logger: logger}, nil
}

// NewRecordRepositoryWithDB wraps an already migrated connection
func NewRecordRepositoryWithDB(db *sqlx.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{db: db, logger: logger}
}

// Create inserts a record and returns its generated id
func (r *RecordRepository) Create(ctx context.Context, rec *record.Record) (int64, error) {
	query := r.db.Rebind(`
		INSERT INTO news (
			title, content, source, published_date, veracity_score, is_fake, analysis_report
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		rec.Title,
		rec.Content,
		rec.Source,
		rec.PublishedDate,
		rec.VeracityScore,
		rec.IsFake,
		rec.AnalysisReport,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save record: %w", err)
	}

	rec.ID = id
	r.logger.Debug("Record saved", zap.Int64("id", id), zap.Bool("is_fake", rec.IsFake))
	return id, nil
}

const recordColumns = `id, title, content, COALESCE(source, '') AS source, published_date,
	COALESCE(veracity_score, 0) AS veracity_score, is_fake, COALESCE(analysis_report, '') AS analysis_report`

// Get retrieves one record by id
func (r *RecordRepository) Get(ctx context.Context, id int64) (*record.Record, error) {
	var rec record.Record
	err := r.db.GetContext(ctx, &rec, r.db.Rebind(`SELECT `+recordColumns+` FROM news WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &rec, nil
}

// List returns records newest first. A non-positive limit returns all rows.
func (r *RecordRepository) List(ctx context.Context, limit, offset int) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM news ORDER BY published_date DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, max(offset, 0))
	}

	records := []*record.Record{}
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	return records, nil
}

// Stats summarizes the stored records
func (r *RecordRepository) Stats(ctx context.Context) (*models.Stats, error) {
	var totals struct {
		Total   int     `db:"total"`
		Fake    int     `db:"fake"`
		Average float64 `db:"average"`
	}
	err := r.db.GetContext(ctx, &totals, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN is_fake THEN 1 ELSE 0 END), 0) AS fake,
		       COALESCE(AVG(veracity_score), 0) AS average
		FROM news
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT COALESCE(source, '') AS source, COUNT(*) AS count
		FROM news
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to group records by source: %w", err)
	}
	defer rows.Close()

	bySource := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			r.logger.Error("Failed to scan source count", zap.Error(err))
			continue
		}
		bySource[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source counts: %w", err)
	}

	return &models.Stats{
		Total:        totals.Total,
		Fake:         totals.Fake,
		Authentic:    totals.Total - totals.Fake,
		AverageScore: totals.Average,
		BySource:     bySource,
	}, nil
}

// CreateJob creates a new batch job
func (r *RecordRepository) CreateJob(ctx context.Context, job *models.Job) error {
	query := r.db.Rebind(`
		INSERT INTO jobs (id, status, total_count, created_at)
		VALUES (?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query, job.ID, job.Status, job.TotalCount, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// UpdateJob updates job progress
func (r *RecordRepository) UpdateJob(ctx context.Context, job *models.Job) error {
	query := r.db.Rebind(`
		UPDATE jobs
		SET status = ?, processed_count = ?, failed_count = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`)

	_, err := r.db.ExecContext(ctx, query, job.Status, job.ProcessedCount, job.FailedCount, job.CompletedAt, job.ErrorMessage, job.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID
func (r *RecordRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	query := r.db.Rebind(`
		SELECT id, status, total_count, processed_count, failed_count, created_at, completed_at, error_message
		FROM jobs
		WHERE id = ?
	`)

	job := &models.Job{}
	err := r.db.GetContext(ctx, job, query, jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// Close closes the database connection
func (r *RecordRepository) Close() error {
	return r.db.Close()
}
