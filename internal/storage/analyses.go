package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AnalysisRepository handles paper analysis CRUD operations.
type AnalysisRepository struct {
	db DB
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `id, user_id, title, original_filename, stored_path,
	file_size_bytes, sha256, abstract, motivation, contribution,
	what_does_paper_do, how_does_paper_do, limitations_challenges,
	future_work, conclusion, analysis_data, created_at, updated_at`

func scanAnalysis(row interface{ Scan(...interface{}) error }) (*PaperAnalysis, error) {
	var (
		a         PaperAnalysis
		idStr     string
		userIDStr string
		rawData   string
	)
	err := row.Scan(
		&idStr, &userIDStr, &a.Title, &a.OriginalFilename, &a.StoredPath,
		&a.FileSizeBytes, &a.SHA256,
		&a.Summary.Abstract, &a.Summary.Motivation, &a.Summary.Contribution,
		&a.Summary.Experiments, &a.Summary.Methodology, &a.Summary.Limitations,
		&a.Summary.FutureWork, &a.Summary.Conclusion,
		&rawData, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.ID, err = uuid.Parse(idStr); err != nil {
		return nil, err
	}
	if a.UserID, err = uuid.Parse(userIDStr); err != nil {
		return nil, err
	}
	a.AnalysisData = []byte(rawData)
	return &a, nil
}

// Create persists a new analysis record.
func (r *AnalysisRepository) Create(ctx context.Context, a *PaperAnalysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt

	rawData := "{}"
	if len(a.AnalysisData) > 0 {
		rawData = string(a.AnalysisData)
	}

	query := `
		INSERT INTO paper_analyses (id, user_id, title, original_filename, stored_path,
			file_size_bytes, sha256, abstract, motivation, contribution,
			what_does_paper_do, how_does_paper_do, limitations_challenges,
			future_work, conclusion, analysis_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(), a.UserID.String(), a.Title, a.OriginalFilename, a.StoredPath,
		a.FileSizeBytes, a.SHA256,
		a.Summary.Abstract, a.Summary.Motivation, a.Summary.Contribution,
		a.Summary.Experiments, a.Summary.Methodology, a.Summary.Limitations,
		a.Summary.FutureWork, a.Summary.Conclusion,
		rawData, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// GetByID retrieves an analysis by ID scoped to its owner.
func (r *AnalysisRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*PaperAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM paper_analyses
		WHERE id = $1 AND user_id = $2`
	return scanAnalysis(r.db.QueryRowContext(ctx, query, id.String(), userID.String()))
}

// GetAnyByID retrieves an analysis by ID regardless of owner (admin use).
func (r *AnalysisRepository) GetAnyByID(ctx context.Context, id uuid.UUID) (*PaperAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM paper_analyses WHERE id = $1`
	return scanAnalysis(r.db.QueryRowContext(ctx, query, id.String()))
}

// ListByUser lists a user's analyses newest first.
func (r *AnalysisRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*PaperAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM paper_analyses
		WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID.String())
}

// ListAll lists every analysis newest first (admin use).
func (r *AnalysisRepository) ListAll(ctx context.Context) ([]*PaperAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM paper_analyses ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *AnalysisRepository) list(ctx context.Context, query string, args ...interface{}) ([]*PaperAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var analyses []*PaperAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

// Delete removes an analysis scoped to its owner. Returns ErrNotFound when
// nothing was deleted.
func (r *AnalysisRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM paper_analyses WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id.String(), userID.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAny removes an analysis regardless of owner (admin use).
func (r *AnalysisRepository) DeleteAny(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM paper_analyses WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
