// Package orgs manages organizations and their memberships.
//
// # Overview
//
// An organization groups users under Owner and Radiologist roles. Creating
// one enrolls its creator as Owner in the same transaction; deleting one
// removes the memberships with it. Owners invite radiologists, which
// provisions an account with a readable temporary password and a forced
// change on first login.
//
// # Usage
//
//	svc := orgs.NewPostgresService(db)
//	err := svc.CreateOrganization(ctx, &orgs.Organization{
//		Name:            "Kestrel Imaging",
//		Address:         "400 Harbor Blvd",
//		PhoneNumber:     "+15551234567",
//		CreatedByUserID: ownerID,
//	})
//
// Paginated listing goes through the shared engine:
//
//	conn, err := pagination.Paginate(ctx, db, svc.PageQuery(), req)
//
// # Related Packages
//
//   - pkg/auth: Account provisioning used by radiologist invites
//   - pkg/rbac: Role checks over the memberships written here
//   - pkg/pagination: Cursor pagination for organization lists
package orgs
