package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
)

func newServiceMock(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(NewStore(db), NewTokenManager("test-secret", time.Hour)), mock
}

func hashedUserRow(t *testing.T, id int64, email, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email", "phone_number",
		"password_hash", "must_change_password", "temp_password", "created_at",
	}).AddRow(id, "Dana", "Reyes", email, nil, hash, false, "", time.Now())
}

func TestService_Login(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		svc, mock := newServiceMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("dana@kestrel.io").
			WillReturnRows(hashedUserRow(t, 7, "dana@kestrel.io", "Sup3rSecret"))

		payload, err := svc.Login(context.Background(), "dana@kestrel.io", "Sup3rSecret")
		require.NoError(t, err)
		assert.NotEmpty(t, payload.Token)
		assert.Equal(t, int64(7), payload.User.ID)

		userID, err := svc.tokens.Verify(payload.Token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), userID)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, mock := newServiceMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("dana@kestrel.io").
			WillReturnRows(hashedUserRow(t, 7, "dana@kestrel.io", "Sup3rSecret"))

		_, err := svc.Login(context.Background(), "dana@kestrel.io", "WrongPassword1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindAuthenticationRequired, apperr.KindOf(err))
		assert.EqualError(t, err, "invalid email or password")
	})

	t.Run("unknown email reports the same error", func(t *testing.T) {
		svc, mock := newServiceMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
			WithArgs("ghost@kestrel.io").
			WillReturnError(sql.ErrNoRows)

		_, err := svc.Login(context.Background(), "ghost@kestrel.io", "Sup3rSecret")
		require.Error(t, err)
		assert.EqualError(t, err, "invalid email or password")
	})
}

func TestService_ChangePassword(t *testing.T) {
	t.Run("success clears first-login state", func(t *testing.T) {
		svc, mock := newServiceMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(int64(7)).
			WillReturnRows(hashedUserRow(t, 7, "dana@kestrel.io", "OldSecret1"))
		mock.ExpectExec("UPDATE users").
			WithArgs(sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := svc.ChangePassword(context.Background(), 7, "OldSecret1", "NewSecret1")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong current password", func(t *testing.T) {
		svc, mock := newServiceMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(int64(7)).
			WillReturnRows(hashedUserRow(t, 7, "dana@kestrel.io", "OldSecret1"))

		err := svc.ChangePassword(context.Background(), 7, "Nope12345", "NewSecret1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindAuthenticationRequired, apperr.KindOf(err))
	})

	t.Run("reusing the current password", func(t *testing.T) {
		svc, mock := newServiceMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(int64(7)).
			WillReturnRows(hashedUserRow(t, 7, "dana@kestrel.io", "OldSecret1"))

		err := svc.ChangePassword(context.Background(), 7, "OldSecret1", "OldSecret1")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	})

	t.Run("weak new password", func(t *testing.T) {
		svc, mock := newServiceMock(t)
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(int64(7)).
			WillReturnRows(hashedUserRow(t, 7, "dana@kestrel.io", "OldSecret1"))

		err := svc.ChangePassword(context.Background(), 7, "OldSecret1", "weak")
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	})
}
