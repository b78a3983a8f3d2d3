package radiology

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringSlice stores a list of strings as a JSON text column, which both
// supported database drivers can hold.
type StringSlice []string

// Value implements driver.Valuer.
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		s = StringSlice{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode string slice: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", src)
	}
}

// Study is one kind of radiology examination.
type Study struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Categories StringSlice `json:"categories"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// StudyTemplate names the report sections used when dictating a study.
type StudyTemplate struct {
	ID           int64       `json:"id"`
	StudyID      int64       `json:"studyId"`
	SectionNames StringSlice `json:"sectionNames"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	StatusDraft              ReportStatus = "Draft"
	StatusPreliminary        ReportStatus = "Preliminary"
	StatusSigned             ReportStatus = "Signed"
	StatusSignedWithAddendum ReportStatus = "Signed with Addendum"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPreliminary, StatusSigned, StatusSignedWithAddendum:
		return true
	}
	return false
}

// Report is one dictated report against a study.
type Report struct {
	ID         int64        `json:"id"`
	StudyID    int64        `json:"studyId"`
	TemplateID int64        `json:"templateId"`
	UserID     int64        `json:"userId"`
	PromptText string       `json:"promptText"`
	ResultText string       `json:"resultText"`
	Status     ReportStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  *time.Time   `json:"updatedAt"`
}

// ReportHistory is a snapshot taken on every report update.
type ReportHistory struct {
	ID         int64        `json:"id"`
	ReportID   int64        `json:"reportId"`
	Timestamp  time.Time    `json:"timestamp"`
	Status     ReportStatus `json:"status"`
	ResultText string       `json:"resultText"`
}

// ReportEvent records a status transition.
type ReportEvent struct {
	ID        int64     `json:"id"`
	ReportID  int64     `json:"reportId"`
	EventType string    `json:"eventType"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}
