package radiology

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/pagination"
)

func reportRow(id int64, status ReportStatus, resultText string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "study_id", "template_id", "user_id", "prompt_text",
		"result_text", "status", "created_at", "updated_at",
	}).AddRow(id, int64(3), int64(11), int64(7), "55yo male, cough", resultText, string(status), time.Now(), nil)
}

func TestCreateReport(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("INSERT INTO reports").
		WithArgs(int64(3), int64(11), int64(7), "55yo male, cough", "", "Draft").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(21), time.Now()))

	r := &Report{StudyID: 3, TemplateID: 11, UserID: 7, PromptText: "55yo male, cough"}
	require.NoError(t, svc.CreateReport(context.Background(), r))
	assert.Equal(t, int64(21), r.ID)
	assert.Equal(t, StatusDraft, r.Status)
}

func TestCreateReport_Validation(t *testing.T) {
	svc, mock := newMockService(t)

	tests := []struct {
		name    string
		report  *Report
		message string
	}{
		{"missing study", &Report{TemplateID: 11, UserID: 7, PromptText: "x"}, "study ID is required"},
		{"missing template", &Report{StudyID: 3, UserID: 7, PromptText: "x"}, "template ID is required"},
		{"missing user", &Report{StudyID: 3, TemplateID: 11, PromptText: "x"}, "user ID is required"},
		{"missing prompt", &Report{StudyID: 3, TemplateID: 11, UserID: 7, PromptText: " "}, "prompt text is required"},
		{"bad status", &Report{StudyID: 3, TemplateID: 11, UserID: 7, PromptText: "x", Status: "Final"}, "invalid report status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateReport(context.Background(), tt.report)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReport_StatusChangeRecordsHistoryAndEvent(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE id").
		WithArgs(int64(21)).
		WillReturnRows(reportRow(21, StatusDraft, ""))
	mock.ExpectQuery("UPDATE reports").
		WithArgs("55yo male, cough", "No acute findings.", "Signed", int64(21)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO report_history").
		WithArgs(int64(21), "Signed", "No acute findings.").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO report_events").
		WithArgs(int64(21), "status_change", "Draft -> Signed").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result := "No acute findings."
	status := StatusSigned
	r, err := svc.UpdateReport(context.Background(), 21, ReportUpdate{ResultText: &result, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusSigned, r.Status)
	require.NotNil(t, r.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReport_SameStatusSkipsEvent(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE id").
		WithArgs(int64(21)).
		WillReturnRows(reportRow(21, StatusDraft, ""))
	mock.ExpectQuery("UPDATE reports").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO report_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result := "Preliminary read pending."
	_, err := svc.UpdateReport(context.Background(), 21, ReportUpdate{ResultText: &result})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReport_NotFound(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM reports WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.UpdateReport(context.Background(), 99, ReportUpdate{})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestUpdateReport_RejectsInvalidStatus(t *testing.T) {
	svc, mock := newMockService(t)

	status := ReportStatus("Archived")
	_, err := svc.UpdateReport(context.Background(), 21, ReportUpdate{Status: &status})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReport_RemovesHistoryAndEvents(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM report_history WHERE report_id").
		WithArgs(int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM report_events WHERE report_id").
		WithArgs(int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM reports WHERE id").
		WithArgs(int64(21)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteReport(context.Background(), 21))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListHistory(t *testing.T) {
	svc, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{"id", "report_id", "timestamp", "status", "result_text"}).
		AddRow(int64(1), int64(21), time.Now(), "Preliminary", "Initial read.").
		AddRow(int64(2), int64(21), time.Now(), "Signed", "No acute findings.")
	mock.ExpectQuery("SELECT (.+) FROM report_history").
		WithArgs(int64(21)).
		WillReturnRows(rows)

	history, err := svc.ListHistory(context.Background(), 21)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, StatusSigned, history[1].Status)
}

func TestListEvents(t *testing.T) {
	svc, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{"id", "report_id", "event_type", "timestamp", "details"}).
		AddRow(int64(1), int64(21), "status_change", time.Now(), "Draft -> Signed")
	mock.ExpectQuery("SELECT (.+) FROM report_events").
		WithArgs(int64(21)).
		WillReturnRows(rows)

	events, err := svc.ListEvents(context.Background(), 21)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Draft -> Signed", events[0].Details)
}

func TestReportPageQuery_Filters(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE study_id = (.+) AND status =").
		WithArgs(int64(3), "Signed", 21).
		WillReturnRows(reportRow(21, StatusSigned, "No acute findings."))
	mock.ExpectQuery(`SELECT COUNT\(id\) FROM reports WHERE study_id = (.+) AND status =`).
		WithArgs(int64(3), "Signed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	conn, err := pagination.Paginate(context.Background(), svc.db,
		svc.ReportPageQuery(ReportFilter{StudyID: 3, Status: StatusSigned}), pagination.PageRequest{})
	require.NoError(t, err)
	require.Len(t, conn.Edges, 1)
	assert.Equal(t, StatusSigned, conn.Edges[0].Node.Status)
}
