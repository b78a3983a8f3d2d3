// Package auth provides user accounts, credential verification, and access
// tokens for the RadPoint reporting service.
//
// # Overview
//
// This package implements the authentication core: bcrypt password storage
// with a strength policy, HS256 access tokens, invite-time temporary
// passwords, and the first-login password change requirement.
//
// # Key Components
//
// User accounts and the resolved request identity:
//
//	user := &auth.User{
//		FirstName: "Dana",
//		LastName:  "Reyes",
//		Email:     "dana@example.com",
//	}
//
// Access tokens: HS256 with the user ID as subject
//
//	tokens := auth.NewTokenManager(secret, 24*time.Hour)
//	token, _ := tokens.Issue(user.ID)
//	userID, err := tokens.Verify(token)
//
// Credentialed flows:
//
//	payload, err := service.Login(ctx, email, password)
//	err = service.ChangePassword(ctx, userID, current, updated)
//
// Temporary passwords: invited radiologists receive a generated password
// that must be changed on first login. Owners can read the pending value and
// force a fresh reset through the store.
//
// # Related Packages
//
//   - pkg/middleware: Resolves identities from bearer tokens
//   - pkg/rbac: Role checks for resolved identities
package auth
