package rbac

import (
	"context"
	"database/sql"
	"fmt"
)

// Evaluator answers role and access questions for a user. Implementations
// must treat an unknown user as having no roles rather than erroring.
type Evaluator interface {
	// HasRoleInOrganization reports whether the user holds the role in the
	// given organization.
	HasRoleInOrganization(ctx context.Context, userID, orgID int64, role Role) (bool, error)

	// HasRoleAnywhere reports whether the user holds the role in any
	// organization.
	HasRoleAnywhere(ctx context.Context, userID int64, role Role) (bool, error)

	// CanAccessOrganization reports whether the user is a member of the
	// organization under any role.
	CanAccessOrganization(ctx context.Context, userID, orgID int64) (bool, error)

	// OrganizationsWithRole lists the organization IDs where the user holds
	// the role, in ascending order.
	OrganizationsWithRole(ctx context.Context, userID int64, role Role) ([]int64, error)
}

// MembershipEvaluator evaluates roles against the organization_members table.
type MembershipEvaluator struct {
	db *sql.DB
}

// NewMembershipEvaluator creates an evaluator over the given database.
func NewMembershipEvaluator(db *sql.DB) *MembershipEvaluator {
	return &MembershipEvaluator{db: db}
}

// HasRoleInOrganization checks for a membership row matching user,
// organization, and role.
func (e *MembershipEvaluator) HasRoleInOrganization(ctx context.Context, userID, orgID int64, role Role) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM organization_members
			WHERE user_id = $1 AND organization_id = $2 AND role = $3
		)
	`
	var ok bool
	if err := e.db.QueryRowContext(ctx, query, userID, orgID, string(role)).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check role in organization: %w", err)
	}
	return ok, nil
}

// HasRoleAnywhere checks for a membership row matching user and role in any
// organization.
func (e *MembershipEvaluator) HasRoleAnywhere(ctx context.Context, userID int64, role Role) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM organization_members
			WHERE user_id = $1 AND role = $2
		)
	`
	var ok bool
	if err := e.db.QueryRowContext(ctx, query, userID, string(role)).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check role anywhere: %w", err)
	}
	return ok, nil
}

// CanAccessOrganization checks for membership under any role.
func (e *MembershipEvaluator) CanAccessOrganization(ctx context.Context, userID, orgID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM organization_members
			WHERE user_id = $1 AND organization_id = $2
		)
	`
	var ok bool
	if err := e.db.QueryRowContext(ctx, query, userID, orgID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check organization access: %w", err)
	}
	return ok, nil
}

// OrganizationsWithRole lists the organization IDs where the user holds the
// given role.
func (e *MembershipEvaluator) OrganizationsWithRole(ctx context.Context, userID int64, role Role) ([]int64, error) {
	query := `
		SELECT organization_id FROM organization_members
		WHERE user_id = $1 AND role = $2
		ORDER BY organization_id
	`
	rows, err := e.db.QueryContext(ctx, query, userID, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations with role: %w", err)
	}
	defer rows.Close()

	var orgIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization id: %w", err)
		}
		orgIDs = append(orgIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list organizations with role: %w", err)
	}
	return orgIDs, nil
}
