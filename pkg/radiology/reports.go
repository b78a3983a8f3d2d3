package radiology

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/pagination"
)

const reportColumns = "id, study_id, template_id, user_id, prompt_text, COALESCE(result_text,''), status, created_at, updated_at"

func scanReport(row interface{ Scan(...interface{}) error }) (*Report, error) {
	var r Report
	var updated sql.NullTime
	err := row.Scan(&r.ID, &r.StudyID, &r.TemplateID, &r.UserID, &r.PromptText,
		&r.ResultText, &r.Status, &r.CreatedAt, &updated)
	if err != nil {
		return nil, err
	}
	if updated.Valid {
		r.UpdatedAt = &updated.Time
	}
	return &r, nil
}

// ReportUpdate carries the editable fields of a report. Nil fields are left
// unchanged.
type ReportUpdate struct {
	PromptText *string
	ResultText *string
	Status     *ReportStatus
}

// CreateReport inserts a new draft report for a study.
func (s *PostgresService) CreateReport(ctx context.Context, r *Report) error {
	if r.StudyID == 0 {
		return apperr.New(apperr.KindInvalidArgument, "study ID is required")
	}
	if r.TemplateID == 0 {
		return apperr.New(apperr.KindInvalidArgument, "template ID is required")
	}
	if r.UserID == 0 {
		return apperr.New(apperr.KindInvalidArgument, "user ID is required")
	}
	if strings.TrimSpace(r.PromptText) == "" {
		return apperr.New(apperr.KindInvalidArgument, "prompt text is required")
	}
	if r.Status == "" {
		r.Status = StatusDraft
	}
	if !r.Status.Valid() {
		return apperr.New(apperr.KindInvalidArgument, "invalid report status: %s", r.Status)
	}

	query := `
		INSERT INTO reports (study_id, template_id, user_id, prompt_text, result_text, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query, r.StudyID, r.TemplateID, r.UserID,
		r.PromptText, r.ResultText, string(r.Status)).
		Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by ID.
func (s *PostgresService) GetReport(ctx context.Context, id int64) (*Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", reportColumns)
	r, err := scanReport(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return r, nil
}

// UpdateReport applies the update inside one transaction, snapshots the new
// state into the history table, and records an event when the status moved.
// Returns the updated report.
func (s *PostgresService) UpdateReport(ctx context.Context, id int64, upd ReportUpdate) (*Report, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperr.New(apperr.KindInvalidArgument, "invalid report status: %s", *upd.Status)
	}
	if upd.PromptText != nil && strings.TrimSpace(*upd.PromptText) == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "prompt text is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", reportColumns)
	r, err := scanReport(tx.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	oldStatus := r.Status
	if upd.PromptText != nil {
		r.PromptText = *upd.PromptText
	}
	if upd.ResultText != nil {
		r.ResultText = *upd.ResultText
	}
	if upd.Status != nil {
		r.Status = *upd.Status
	}

	var updated sql.NullTime
	err = tx.QueryRowContext(ctx, `
		UPDATE reports
		SET prompt_text = $1, result_text = NULLIF($2, ''), status = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING updated_at
	`, r.PromptText, r.ResultText, string(r.Status), id).Scan(&updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}
	if updated.Valid {
		r.UpdatedAt = &updated.Time
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO report_history (report_id, status, result_text)
		VALUES ($1, $2, NULLIF($3, ''))
	`, id, string(r.Status), r.ResultText)
	if err != nil {
		return nil, fmt.Errorf("failed to record report history: %w", err)
	}

	if r.Status != oldStatus {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO report_events (report_id, event_type, details)
			VALUES ($1, $2, $3)
		`, id, "status_change", fmt.Sprintf("%s -> %s", oldStatus, r.Status))
		if err != nil {
			return nil, fmt.Errorf("failed to record report event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report update: %w", err)
	}
	return r, nil
}

// DeleteReport removes a report along with its history and events.
func (s *PostgresService) DeleteReport(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM report_history WHERE report_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete report history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM report_events WHERE report_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete report events: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM reports WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if err := requireRowAffected(res, "report not found"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// ListHistory returns the snapshots recorded for a report, oldest first.
func (s *PostgresService) ListHistory(ctx context.Context, reportID int64) ([]*ReportHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, timestamp, status, COALESCE(result_text,'')
		FROM report_history
		WHERE report_id = $1
		ORDER BY id
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list report history: %w", err)
	}
	defer rows.Close()

	var history []*ReportHistory
	for rows.Next() {
		var h ReportHistory
		if err := rows.Scan(&h.ID, &h.ReportID, &h.Timestamp, &h.Status, &h.ResultText); err != nil {
			return nil, fmt.Errorf("failed to scan report history: %w", err)
		}
		history = append(history, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list report history: %w", err)
	}
	return history, nil
}

// ListEvents returns the status transition events for a report, oldest first.
func (s *PostgresService) ListEvents(ctx context.Context, reportID int64) ([]*ReportEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, event_type, timestamp, COALESCE(details,'')
		FROM report_events
		WHERE report_id = $1
		ORDER BY id
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to list report events: %w", err)
	}
	defer rows.Close()

	var events []*ReportEvent
	for rows.Next() {
		var e ReportEvent
		if err := rows.Scan(&e.ID, &e.ReportID, &e.EventType, &e.Timestamp, &e.Details); err != nil {
			return nil, fmt.Errorf("failed to scan report event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list report events: %w", err)
	}
	return events, nil
}

// ReportPageQuery builds the paginated report list query with optional
// filters.
func (s *PostgresService) ReportPageQuery(filter ReportFilter) pagination.Query[*Report] {
	return pagination.Query[*Report]{
		Table: "reports",
		Columns: []string{
			"id", "study_id", "template_id", "user_id", "prompt_text",
			"COALESCE(result_text,'')", "status", "created_at", "updated_at",
		},
		Filters: filter.Predicates(),
		Scan: func(rows *sql.Rows) (*Report, int64, error) {
			r, err := scanReport(rows)
			if err != nil {
				return nil, 0, err
			}
			return r, r.ID, nil
		},
	}
}
