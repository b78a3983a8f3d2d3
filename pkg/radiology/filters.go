package radiology

import (
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/pagination"
)

// StudyFilter narrows a paginated study list. Zero values mean no restriction.
type StudyFilter struct {
	Name     string
	Category string
}

// Predicates converts the filter into pagination predicates.
func (f StudyFilter) Predicates() []pagination.Filter {
	var filters []pagination.Filter
	if f.Name != "" {
		filters = append(filters, pagination.Filter{
			Expr: "LOWER(name) LIKE ?",
			Args: []interface{}{"%" + strings.ToLower(f.Name) + "%"},
		})
	}
	if f.Category != "" {
		// categories is a JSON array of strings, so a member always
		// appears quoted
		filters = append(filters, pagination.Filter{
			Expr: "categories LIKE ?",
			Args: []interface{}{`%"` + f.Category + `"%`},
		})
	}
	return filters
}

// ReportFilter narrows a paginated report list. Zero values mean no
// restriction.
type ReportFilter struct {
	StudyID int64
	UserID  int64
	Status  ReportStatus
}

// Predicates converts the filter into pagination predicates.
func (f ReportFilter) Predicates() []pagination.Filter {
	var filters []pagination.Filter
	if f.StudyID != 0 {
		filters = append(filters, pagination.Filter{
			Expr: "study_id = ?",
			Args: []interface{}{f.StudyID},
		})
	}
	if f.UserID != 0 {
		filters = append(filters, pagination.Filter{
			Expr: "user_id = ?",
			Args: []interface{}{f.UserID},
		})
	}
	if f.Status != "" {
		filters = append(filters, pagination.Filter{
			Expr: "status = ?",
			Args: []interface{}{string(f.Status)},
		})
	}
	return filters
}
