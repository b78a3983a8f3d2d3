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

func newStoreMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func userRow(id int64, email string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email", "phone_number",
		"password_hash", "must_change_password", "temp_password", "created_at",
	}).AddRow(id, "Dana", "Reyes", email, nil, "$2a$10$hash", false, "", time.Now())
}

func TestStore_CreateUser_Validation(t *testing.T) {
	store, mock := newStoreMock(t)

	tests := []struct {
		name    string
		user    User
		pass    string
		wantErr string
	}{
		{"missing first name", User{LastName: "Reyes", Email: "d@x.io"}, "Abcdefg1", "first name is required"},
		{"missing last name", User{FirstName: "Dana", Email: "d@x.io"}, "Abcdefg1", "last name is required"},
		{"missing email", User{FirstName: "Dana", LastName: "Reyes"}, "Abcdefg1", "email is required"},
		{"bad email", User{FirstName: "Dana", LastName: "Reyes", Email: "not-an-email"}, "Abcdefg1", "invalid email format"},
		{"bad phone", User{FirstName: "Dana", LastName: "Reyes", Email: "d@x.io", PhoneNumber: "abc"}, "Abcdefg1", "invalid phone number format"},
		{"weak password", User{FirstName: "Dana", LastName: "Reyes", Email: "d@x.io"}, "weak", "password must be at least 8 characters long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			err := store.CreateUser(context.Background(), &u, tt.pass)
			require.Error(t, err)
			assert.EqualError(t, err, tt.wantErr)
			assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
		})
	}

	// Validation failures never reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateUser(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("Dana", "Reyes", "dana@kestrel.io", sqlmock.AnyArg(), sqlmock.AnyArg(), false, "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

	u := User{FirstName: "Dana", LastName: "Reyes", Email: "dana@kestrel.io"}
	err := store.CreateUser(context.Background(), &u, "Abcdefg1")
	require.NoError(t, err)

	assert.Equal(t, int64(7), u.ID)
	assert.NotEmpty(t, u.PasswordHash)
	assert.True(t, CheckPassword(u.PasswordHash, "Abcdefg1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetUser(t *testing.T) {
	store, mock := newStoreMock(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(int64(7)).
			WillReturnRows(userRow(7, "dana@kestrel.io"))

		u, err := store.GetUser(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "dana@kestrel.io", u.Email)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(int64(8)).
			WillReturnError(sql.ErrNoRows)

		_, err := store.GetUser(context.Background(), 8)
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestStore_SetPassword(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectExec("UPDATE users").
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SetPassword(context.Background(), 7, "NewSecret1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetPassword_WeakRejected(t *testing.T) {
	store, mock := newStoreMock(t)

	err := store.SetPassword(context.Background(), 7, "weak")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ForcePasswordReset(t *testing.T) {
	store, mock := newStoreMock(t)

	t.Run("issues temp password", func(t *testing.T) {
		mock.ExpectExec("UPDATE users").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		temp, err := store.ForcePasswordReset(context.Background(), 7)
		require.NoError(t, err)
		assert.NoError(t, ValidatePassword(temp))
	})

	t.Run("unknown user", func(t *testing.T) {
		mock.ExpectExec("UPDATE users").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := store.ForcePasswordReset(context.Background(), 9)
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestStore_TempPassword(t *testing.T) {
	store, mock := newStoreMock(t)

	t.Run("pending", func(t *testing.T) {
		mock.ExpectQuery("SELECT temp_password FROM users").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"temp_password"}).AddRow("Xy7mKpQr2Wvn"))

		temp, err := store.TempPassword(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, "Xy7mKpQr2Wvn", temp)
	})

	t.Run("none pending", func(t *testing.T) {
		mock.ExpectQuery("SELECT temp_password FROM users").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"temp_password"}).AddRow(nil))

		_, err := store.TempPassword(context.Background(), 7)
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestStore_SweepTempPasswords(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.SweepTempPasswords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_DeleteUser(t *testing.T) {
	store, mock := newStoreMock(t)

	mock.ExpectExec("DELETE FROM users").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.DeleteUser(context.Background(), 7))
}
