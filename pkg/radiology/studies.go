package radiology

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/pagination"
)

// PostgresService implements study and report persistence over database/sql.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new radiology service.
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateStudy inserts a new study.
func (s *PostgresService) CreateStudy(ctx context.Context, study *Study) error {
	if strings.TrimSpace(study.Name) == "" {
		return apperr.New(apperr.KindInvalidArgument, "study name is required")
	}

	query := `
		INSERT INTO studies (name, categories)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, study.Name, study.Categories).
		Scan(&study.ID, &study.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create study: %w", err)
	}
	return nil
}

// GetStudy retrieves a study by ID.
func (s *PostgresService) GetStudy(ctx context.Context, id int64) (*Study, error) {
	var study Study
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, categories, created_at FROM studies WHERE id = $1", id).
		Scan(&study.ID, &study.Name, &study.Categories, &study.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "study not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study: %w", err)
	}
	return &study, nil
}

// UpdateStudy updates a study's name and categories.
func (s *PostgresService) UpdateStudy(ctx context.Context, study *Study) error {
	if strings.TrimSpace(study.Name) == "" {
		return apperr.New(apperr.KindInvalidArgument, "study name is required")
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE studies SET name = $1, categories = $2 WHERE id = $3",
		study.Name, study.Categories, study.ID)
	if err != nil {
		return fmt.Errorf("failed to update study: %w", err)
	}
	return requireRowAffected(res, "study not found")
}

// DeleteStudy removes a study and its templates.
func (s *PostgresService) DeleteStudy(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM study_templates WHERE study_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete study templates: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM studies WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete study: %w", err)
	}
	if err := requireRowAffected(res, "study not found"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// StudyPageQuery builds the paginated study list query with optional filters.
func (s *PostgresService) StudyPageQuery(filter StudyFilter) pagination.Query[*Study] {
	return pagination.Query[*Study]{
		Table:   "studies",
		Columns: []string{"id", "name", "categories", "created_at"},
		Filters: filter.Predicates(),
		Scan: func(rows *sql.Rows) (*Study, int64, error) {
			var study Study
			if err := rows.Scan(&study.ID, &study.Name, &study.Categories, &study.CreatedAt); err != nil {
				return nil, 0, err
			}
			return &study, study.ID, nil
		},
	}
}

// CreateTemplate inserts a section template for a study.
func (s *PostgresService) CreateTemplate(ctx context.Context, tpl *StudyTemplate) error {
	if tpl.StudyID == 0 {
		return apperr.New(apperr.KindInvalidArgument, "study ID is required")
	}
	if len(tpl.SectionNames) == 0 {
		return apperr.New(apperr.KindInvalidArgument, "at least one section name is required")
	}

	query := `
		INSERT INTO study_templates (study_id, section_names)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, tpl.StudyID, tpl.SectionNames).
		Scan(&tpl.ID, &tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create study template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a study template by ID.
func (s *PostgresService) GetTemplate(ctx context.Context, id int64) (*StudyTemplate, error) {
	var tpl StudyTemplate
	err := s.db.QueryRowContext(ctx,
		"SELECT id, study_id, section_names, created_at FROM study_templates WHERE id = $1", id).
		Scan(&tpl.ID, &tpl.StudyID, &tpl.SectionNames, &tpl.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "study template not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get study template: %w", err)
	}
	return &tpl, nil
}

// ListTemplates returns the templates for one study.
func (s *PostgresService) ListTemplates(ctx context.Context, studyID int64) ([]*StudyTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, study_id, section_names, created_at FROM study_templates WHERE study_id = $1 ORDER BY id", studyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list study templates: %w", err)
	}
	defer rows.Close()

	var templates []*StudyTemplate
	for rows.Next() {
		var tpl StudyTemplate
		if err := rows.Scan(&tpl.ID, &tpl.StudyID, &tpl.SectionNames, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan study template: %w", err)
		}
		templates = append(templates, &tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list study templates: %w", err)
	}
	return templates, nil
}

func requireRowAffected(res sql.Result, notFoundMsg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return apperr.New(apperr.KindNotFound, "%s", notFoundMsg)
	}
	return nil
}
