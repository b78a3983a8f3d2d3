package auth

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/pagination"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)
)

// Store persists user accounts in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new user store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var userColumnList = []string{
	"id", "first_name", "last_name", "email", "phone_number",
	"password_hash", "must_change_password", "COALESCE(temp_password,'')", "created_at",
}

var userColumns = strings.Join(userColumnList, ", ")

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var u User
	var phone sql.NullString
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &phone,
		&u.PasswordHash, &u.MustChangePassword, &u.TempPassword, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.PhoneNumber = phone.String
	return &u, nil
}

// validateNewUser checks the request fields before any writes happen.
func validateNewUser(u *User, plaintext string) error {
	if strings.TrimSpace(u.FirstName) == "" {
		return apperr.New(apperr.KindInvalidArgument, "first name is required")
	}
	if strings.TrimSpace(u.LastName) == "" {
		return apperr.New(apperr.KindInvalidArgument, "last name is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return apperr.New(apperr.KindInvalidArgument, "email is required")
	}
	if !emailPattern.MatchString(u.Email) {
		return apperr.New(apperr.KindInvalidArgument, "invalid email format")
	}
	if u.PhoneNumber != "" && !phonePattern.MatchString(u.PhoneNumber) {
		return apperr.New(apperr.KindInvalidArgument, "invalid phone number format")
	}
	if err := ValidatePassword(plaintext); err != nil {
		return err
	}
	return nil
}

// CreateUser validates and inserts a new account with the given password.
func (s *Store) CreateUser(ctx context.Context, u *User, plaintext string) error {
	if err := validateNewUser(u, plaintext); err != nil {
		return err
	}

	hash, err := HashPassword(plaintext)
	if err != nil {
		return err
	}
	u.PasswordHash = hash

	query := `
		INSERT INTO users (first_name, last_name, email, phone_number, password_hash, must_change_password, temp_password)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id, created_at
	`
	err = s.db.QueryRowContext(ctx, query, u.FirstName, u.LastName, u.Email,
		nullable(u.PhoneNumber), u.PasswordHash, u.MustChangePassword, u.TempPassword).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// CreateWithTempPassword provisions an invited account. The generated
// temporary password is stored alongside its hash so an Owner can read it
// back, and the account must change it on first login.
func (s *Store) CreateWithTempPassword(ctx context.Context, u *User) (*User, error) {
	temp, err := GenerateTempPassword()
	if err != nil {
		return nil, err
	}
	u.MustChangePassword = true
	u.TempPassword = temp
	if err := s.CreateUser(ctx, u, temp); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateUser updates the editable profile fields of a user.
func (s *Store) UpdateUser(ctx context.Context, u *User) error {
	if u.PhoneNumber != "" && !phonePattern.MatchString(u.PhoneNumber) {
		return apperr.New(apperr.KindInvalidArgument, "invalid phone number format")
	}
	if !emailPattern.MatchString(u.Email) {
		return apperr.New(apperr.KindInvalidArgument, "invalid email format")
	}

	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, phone_number = $4
		WHERE id = $5
	`
	res, err := s.db.ExecContext(ctx, query, u.FirstName, u.LastName, u.Email, nullable(u.PhoneNumber), u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowAffected(res, "user not found")
}

// DeleteUser removes a user account.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(res, "user not found")
}

// SetPassword replaces the stored hash and clears the first-login state.
func (s *Store) SetPassword(ctx context.Context, userID int64, plaintext string) error {
	if err := ValidatePassword(plaintext); err != nil {
		return err
	}
	hash, err := HashPassword(plaintext)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET password_hash = $1, must_change_password = FALSE, temp_password = NULL
		WHERE id = $2
	`
	res, err := s.db.ExecContext(ctx, query, hash, userID)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	return requireRowAffected(res, "user not found")
}

// ForcePasswordReset issues a fresh temporary password for the user and
// requires a change on next login. The plaintext is returned so an Owner can
// hand it to the radiologist.
func (s *Store) ForcePasswordReset(ctx context.Context, userID int64) (string, error) {
	temp, err := GenerateTempPassword()
	if err != nil {
		return "", err
	}
	hash, err := HashPassword(temp)
	if err != nil {
		return "", err
	}

	query := `
		UPDATE users
		SET password_hash = $1, must_change_password = TRUE, temp_password = $2
		WHERE id = $3
	`
	res, err := s.db.ExecContext(ctx, query, hash, temp, userID)
	if err != nil {
		return "", fmt.Errorf("failed to reset password: %w", err)
	}
	if err := requireRowAffected(res, "user not found"); err != nil {
		return "", err
	}
	return temp, nil
}

// TempPassword returns the outstanding temporary password for a user, or a
// not found error when none is pending.
func (s *Store) TempPassword(ctx context.Context, userID int64) (string, error) {
	var temp sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT temp_password FROM users WHERE id = $1", userID).Scan(&temp)
	if err == sql.ErrNoRows {
		return "", apperr.New(apperr.KindNotFound, "user not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get temp password: %w", err)
	}
	if !temp.Valid || temp.String == "" {
		return "", apperr.New(apperr.KindNotFound, "no temporary password pending for user")
	}
	return temp.String, nil
}

// SweepTempPasswords clears stored temporary passwords for accounts that
// have already completed their first-login change. Run periodically.
func (s *Store) SweepTempPasswords(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET temp_password = NULL
		WHERE temp_password IS NOT NULL AND must_change_password = FALSE
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep temp passwords: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to sweep temp passwords: %w", err)
	}
	return n, nil
}

// CountUsers returns the number of accounts, used for the active users gauge.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(id) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// PageQuery builds the paginated list query for user accounts.
func (s *Store) PageQuery() pagination.Query[*User] {
	return pagination.Query[*User]{
		Table:   "users",
		Columns: userColumnList,
		Scan: func(rows *sql.Rows) (*User, int64, error) {
			u, err := scanUser(rows)
			if err != nil {
				return nil, 0, err
			}
			return u, u.ID, nil
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
