package orgs

import (
	"context"
	"fmt"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/auth"
	"github.com/kestrelhealth/radpoint/pkg/rbac"
)

// Member is one user's enrollment in an organization.
type Member struct {
	UserID         int64     `json:"userId"`
	OrganizationID int64     `json:"organizationId"`
	Role           rbac.Role `json:"role"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
}

// AddMember enrolls a user in an organization with the given role.
func (s *PostgresService) AddMember(ctx context.Context, userID, orgID int64, role rbac.Role) error {
	if !role.Valid() {
		return apperr.New(apperr.KindInvalidArgument, "invalid role: %s", role)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organization_members (user_id, organization_id, role)
		VALUES ($1, $2, $3)
	`, userID, orgID, string(role))
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// RemoveMember drops a user's enrollment for one role in an organization.
func (s *PostgresService) RemoveMember(ctx context.Context, userID, orgID int64, role rbac.Role) error {
	if !role.Valid() {
		return apperr.New(apperr.KindInvalidArgument, "invalid role: %s", role)
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM organization_members
		WHERE user_id = $1 AND organization_id = $2 AND role = $3
	`, userID, orgID, string(role))
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return requireRowAffected(res, "membership not found")
}

// ListMembers returns the members of an organization, optionally limited to
// one role. Pass an empty role to list every member.
func (s *PostgresService) ListMembers(ctx context.Context, orgID int64, role rbac.Role) ([]*Member, error) {
	query := `
		SELECT m.user_id, m.organization_id, m.role, u.first_name, u.last_name, u.email
		FROM organization_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
	`
	args := []interface{}{orgID}
	if role != "" {
		if !role.Valid() {
			return nil, apperr.New(apperr.KindInvalidArgument, "invalid role: %s", role)
		}
		query += " AND m.role = $2"
		args = append(args, string(role))
	}
	query += " ORDER BY u.last_name, u.first_name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.OrganizationID, &m.Role, &m.FirstName, &m.LastName, &m.Email); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// InviteRadiologist provisions a radiologist account inside an organization.
// The user is created with a temporary password they must change on first
// login, then enrolled with the Radiologist role. Returns the created user.
func (s *PostgresService) InviteRadiologist(ctx context.Context, users *auth.Store, orgID int64, user *auth.User) (*auth.User, error) {
	if _, err := s.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}

	created, err := users.CreateWithTempPassword(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.AddMember(ctx, created.ID, orgID, rbac.RoleRadiologist); err != nil {
		return nil, err
	}
	return created, nil
}
