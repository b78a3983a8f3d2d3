// Package radiology manages studies, section templates, and reports.
//
// # Overview
//
// A study describes one kind of examination and carries free-form categories.
// Templates name the report sections used when dictating it. A report moves
// through Draft, Preliminary, Signed, and Signed with Addendum; every update
// snapshots the new state into the history table, and status moves append an
// audit event, both inside the update transaction.
//
// # Usage
//
//	svc := radiology.NewPostgresService(db)
//	report := &radiology.Report{StudyID: 3, TemplateID: 11, UserID: authorID, PromptText: prompt}
//	err := svc.CreateReport(ctx, report)
//
// Listing composes filters with cursor pagination:
//
//	q := svc.ReportPageQuery(radiology.ReportFilter{StudyID: 3, Status: radiology.StatusSigned})
//	conn, err := pagination.Paginate(ctx, db, q, req)
//
// # Related Packages
//
//   - pkg/pagination: Cursor pagination engine behind the list queries
//   - pkg/orgs: Organizations whose members author these reports
package radiology
