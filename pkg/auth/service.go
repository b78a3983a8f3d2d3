package auth

import (
	"context"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
)

// Service implements the credentialed flows: login and password change.
type Service struct {
	store  *Store
	tokens *TokenManager
}

// NewService creates an auth service over the given store and token manager.
func NewService(store *Store, tokens *TokenManager) *Service {
	return &Service{store: store, tokens: tokens}
}

// Login verifies credentials and issues an access token. The same error is
// returned for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthPayload, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.New(apperr.KindAuthenticationRequired, "invalid email or password")
		}
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, apperr.New(apperr.KindAuthenticationRequired, "invalid email or password")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthPayload{Token: token, User: user}, nil
}

// ChangePassword verifies the current password and installs the new one,
// clearing any first-login requirement.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, updated string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if !CheckPassword(user.PasswordHash, current) {
		return apperr.New(apperr.KindAuthenticationRequired, "current password is incorrect")
	}
	if updated == current {
		return apperr.New(apperr.KindInvalidArgument, "new password must differ from the current password")
	}

	return s.store.SetPassword(ctx, userID, updated)
}
