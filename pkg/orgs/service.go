package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/pagination"
	"github.com/kestrelhealth/radpoint/pkg/rbac"
)

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// PostgresService implements organization persistence over database/sql.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new organization service.
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

func validateOrganization(org *Organization) error {
	if strings.TrimSpace(org.Name) == "" {
		return apperr.New(apperr.KindInvalidArgument, "organization name is required")
	}
	if strings.TrimSpace(org.Address) == "" {
		return apperr.New(apperr.KindInvalidArgument, "address is required")
	}
	if strings.TrimSpace(org.PhoneNumber) == "" {
		return apperr.New(apperr.KindInvalidArgument, "phone number is required")
	}
	if !phonePattern.MatchString(org.PhoneNumber) {
		return apperr.New(apperr.KindInvalidArgument, "invalid phone number format")
	}
	return nil
}

// CreateOrganization inserts the organization and enrolls its creator as
// Owner in one transaction, so an organization can never exist without an
// Owner.
func (s *PostgresService) CreateOrganization(ctx context.Context, org *Organization) error {
	if err := validateOrganization(org); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO organizations (name, logo, address, phone_number, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query, org.Name, nullable(org.Logo), org.Address,
		org.PhoneNumber, org.CreatedByUserID).Scan(&org.ID)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO organization_members (user_id, organization_id, role)
		VALUES ($1, $2, $3)
	`, org.CreatedByUserID, org.ID, string(rbac.RoleOwner))
	if err != nil {
		return fmt.Errorf("failed to enroll creator as owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit organization: %w", err)
	}
	return nil
}

const orgColumns = "id, name, COALESCE(logo,''), address, phone_number, created_by_user_id"

func scanOrganization(row interface{ Scan(...interface{}) error }) (*Organization, error) {
	var org Organization
	err := row.Scan(&org.ID, &org.Name, &org.Logo, &org.Address, &org.PhoneNumber, &org.CreatedByUserID)
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetOrganization retrieves an organization by ID.
func (s *PostgresService) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	query := fmt.Sprintf("SELECT %s FROM organizations WHERE id = $1", orgColumns)
	org, err := scanOrganization(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "organization not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// UpdateOrganization updates the editable fields of an organization.
func (s *PostgresService) UpdateOrganization(ctx context.Context, org *Organization) error {
	if err := validateOrganization(org); err != nil {
		return err
	}

	query := `
		UPDATE organizations
		SET name = $1, logo = $2, address = $3, phone_number = $4
		WHERE id = $5
	`
	res, err := s.db.ExecContext(ctx, query, org.Name, nullable(org.Logo), org.Address, org.PhoneNumber, org.ID)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return requireRowAffected(res, "organization not found")
}

// DeleteOrganization removes an organization and its memberships.
func (s *PostgresService) DeleteOrganization(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM organization_members WHERE organization_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete memberships: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM organizations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if err := requireRowAffected(res, "organization not found"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// PageQuery builds the paginated list query for organizations.
func (s *PostgresService) PageQuery() pagination.Query[*Organization] {
	return pagination.Query[*Organization]{
		Table: "organizations",
		Columns: []string{
			"id", "name", "COALESCE(logo,'')", "address", "phone_number", "created_by_user_id",
		},
		Scan: func(rows *sql.Rows) (*Organization, int64, error) {
			org, err := scanOrganization(rows)
			if err != nil {
				return nil, 0, err
			}
			return org, org.ID, nil
		},
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
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
