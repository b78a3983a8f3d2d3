package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kestrelhealth/radpoint/pkg/auth"
	"github.com/kestrelhealth/radpoint/pkg/observability"
	"github.com/kestrelhealth/radpoint/pkg/orgs"
	"github.com/kestrelhealth/radpoint/pkg/radiology"
	"github.com/kestrelhealth/radpoint/pkg/rbac"
	"github.com/kestrelhealth/radpoint/pkg/storage"
)

// stubEvaluator answers every role question the same way. memberOrgs backs
// the role-scoped organization listing.
type stubEvaluator struct {
	allow      bool
	memberOrgs []int64
}

func (s *stubEvaluator) HasRoleInOrganization(ctx context.Context, userID, orgID int64, role rbac.Role) (bool, error) {
	return s.allow, nil
}

func (s *stubEvaluator) HasRoleAnywhere(ctx context.Context, userID int64, role rbac.Role) (bool, error) {
	return s.allow, nil
}

func (s *stubEvaluator) CanAccessOrganization(ctx context.Context, userID, orgID int64) (bool, error) {
	return s.allow, nil
}

func (s *stubEvaluator) OrganizationsWithRole(ctx context.Context, userID int64, role rbac.Role) ([]int64, error) {
	return s.memberOrgs, nil
}

type testEnv struct {
	server *Server
	mock   sqlmock.Sqlmock
	tokens *auth.TokenManager
	eval   *stubEvaluator
	blobs  storage.BlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	users := auth.NewStore(db)
	blobs, err := storage.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	eval := &stubEvaluator{allow: true}

	server := NewServer(Options{
		DB:        db,
		Users:     users,
		Auth:      auth.NewService(users, tokens),
		Tokens:    tokens,
		Orgs:      orgs.NewPostgresService(db),
		Radiology: radiology.NewPostgresService(db),
		Blobs:     blobs,
		Evaluator: eval,
		Logger:    logger,
	})

	return &testEnv{server: server, mock: mock, tokens: tokens, eval: eval, blobs: blobs}
}

const testPassword = "Sunrise7Radiology"

func hashed(t *testing.T) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

var userCols = []string{
	"id", "first_name", "last_name", "email", "phone_number",
	"password_hash", "must_change_password", "temp_password", "created_at",
}

// expectIdentity queues the user lookup the auth middleware performs.
func (e *testEnv) expectIdentity(t *testing.T, id int64, mustChange bool) {
	e.mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(id, "Avery", "Cole", "avery@kestrel.io", "+15551230000",
				hashed(t), mustChange, "", time.Now()))
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["error"].(string)
	return code
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	token, err := e.tokens.Issue(userID)
	require.NoError(t, err)
	return token
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("avery@kestrel.io").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(7), "Avery", "Cole", "avery@kestrel.io", "+15551230000",
				hashed(t), false, "", time.Now()))

	rec := env.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "avery@kestrel.io", "password": testPassword}, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var payload auth.AuthPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Token)
	assert.Equal(t, int64(7), payload.User.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(7), "Avery", "Cole", "avery@kestrel.io", "+15551230000",
				hashed(t), false, "", time.Now()))

	rec := env.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "avery@kestrel.io", "password": "wrong-password"}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTHENTICATION_REQUIRED", errorCode(t, rec))
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestGatedRoute_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/studies", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTHENTICATION_REQUIRED", errorCode(t, rec))
}

func TestGatedRoute_BadTokenIsAnonymous(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/studies", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGatedRoute_PasswordChangePendingBlocks(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, true)

	rec := env.do(t, http.MethodGet, "/studies", nil, env.token(t, 7))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "PASSWORD_CHANGE_REQUIRED", errorCode(t, rec))
}

func TestChangePassword_AllowedWhilePending(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, true)

	// service re-reads the user, verifies the current password, then updates
	env.mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(int64(7), "Avery", "Cole", "avery@kestrel.io", "+15551230000",
				hashed(t), true, "", time.Now()))
	env.mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := env.do(t, http.MethodPost, "/auth/change-password",
		map[string]string{"currentPassword": testPassword, "newPassword": "Harbor9Lighthouse"},
		env.token(t, 7))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDeleteOrganization_DeniedWithoutOwnerRole(t *testing.T) {
	env := newTestEnv(t)
	env.eval.allow = false
	env.expectIdentity(t, 7, false)

	rec := env.do(t, http.MethodDelete, "/orgs/42", nil, env.token(t, 7))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", errorCode(t, rec))
}

func TestDeleteOrganization_OwnerAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, false)

	env.mock.ExpectBegin()
	env.mock.ExpectExec("DELETE FROM organization_members").
		WillReturnResult(sqlmock.NewResult(0, 2))
	env.mock.ExpectExec("DELETE FROM organizations").
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	rec := env.do(t, http.MethodDelete, "/orgs/42", nil, env.token(t, 7))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListOrganizations_RoleScoped(t *testing.T) {
	env := newTestEnv(t)
	env.eval.memberOrgs = []int64{4, 9}
	env.expectIdentity(t, 7, false)

	rows := sqlmock.NewRows([]string{"id", "name", "logo", "address", "phone_number", "created_by_user_id"}).
		AddRow(int64(4), "Mercy Imaging", "", "12 Main St", "+15551230000", int64(7)).
		AddRow(int64(9), "Bayview Radiology", "", "80 Pier Ave", "+15551230001", int64(7))
	env.mock.ExpectQuery(`SELECT (.+) FROM organizations WHERE id IN \(\$1, \$2\) ORDER BY id ASC`).
		WithArgs(int64(4), int64(9), 21).
		WillReturnRows(rows)
	env.mock.ExpectQuery(`SELECT COUNT\(id\) FROM organizations WHERE id IN`).
		WithArgs(int64(4), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	rec := env.do(t, http.MethodGet, "/orgs?role=Owner", nil, env.token(t, 7))
	require.Equal(t, http.StatusOK, rec.Code)

	var conn struct {
		Edges []struct {
			Node struct {
				ID int64 `json:"id"`
			} `json:"node"`
		} `json:"edges"`
		TotalCount int64 `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conn))
	require.Len(t, conn.Edges, 2)
	assert.Equal(t, int64(4), conn.Edges[0].Node.ID)
	assert.Equal(t, int64(9), conn.Edges[1].Node.ID)
	assert.Equal(t, int64(2), conn.TotalCount)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListOrganizations_RoleScopedNoMemberships(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, false)

	rec := env.do(t, http.MethodGet, "/orgs?role=Owner", nil, env.token(t, 7))
	require.Equal(t, http.StatusOK, rec.Code)

	var conn struct {
		Edges      []json.RawMessage `json:"edges"`
		TotalCount int64             `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conn))
	assert.Empty(t, conn.Edges)
	assert.Equal(t, int64(0), conn.TotalCount)
	// No organization queries run for an empty scope.
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestListOrganizations_UnknownRole(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, false)

	rec := env.do(t, http.MethodGet, "/orgs?role=Janitor", nil, env.token(t, 7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, rec))
}

func TestListUsers_Paginated(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, false)

	rows := sqlmock.NewRows(userCols).
		AddRow(int64(1), "Avery", "Cole", "avery@kestrel.io", "+15551230000", "h", false, "", time.Now()).
		AddRow(int64(2), "Dana", "Reyes", "dana@kestrel.io", "+15551230001", "h", false, "", time.Now()).
		AddRow(int64(3), "Lee", "Tran", "lee@kestrel.io", "+15551230002", "h", false, "", time.Now())
	env.mock.ExpectQuery("SELECT (.+) FROM users ORDER BY id ASC").
		WithArgs(3).
		WillReturnRows(rows)
	env.mock.ExpectQuery(`SELECT COUNT\(id\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(9)))

	rec := env.do(t, http.MethodGet, "/users?first=2", nil, env.token(t, 7))
	require.Equal(t, http.StatusOK, rec.Code)

	var conn struct {
		Edges []struct {
			Cursor string `json:"cursor"`
			Node   struct {
				ID int64 `json:"id"`
			} `json:"node"`
		} `json:"edges"`
		PageInfo struct {
			HasNextPage bool `json:"hasNextPage"`
		} `json:"pageInfo"`
		TotalCount int64 `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conn))
	require.Len(t, conn.Edges, 2)
	assert.True(t, conn.PageInfo.HasNextPage)
	assert.Equal(t, int64(9), conn.TotalCount)
	assert.NotEmpty(t, conn.Edges[0].Cursor)
}

func TestListUsers_InvalidCursor(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, false)

	rec := env.do(t, http.MethodGet, "/users?after=%21%21%21", nil, env.token(t, 7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CURSOR", errorCode(t, rec))
}

func TestCreateReport_AuthorFromIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, false)

	env.mock.ExpectQuery("INSERT INTO reports").
		WithArgs(int64(3), int64(11), int64(7), "55yo male, cough", "", "Draft").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(21), time.Now()))

	rec := env.do(t, http.MethodPost, "/reports", map[string]interface{}{
		"studyId":    3,
		"templateId": 11,
		"promptText": "55yo male, cough",
	}, env.token(t, 7))

	require.Equal(t, http.StatusCreated, rec.Code)
	var report radiology.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, int64(7), report.UserID)
	assert.Equal(t, radiology.StatusDraft, report.Status)
}

func TestInviteRadiologist_ReturnsTempPassword(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, false)

	env.mock.ExpectQuery("SELECT (.+) FROM organizations WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "logo", "address", "phone_number", "created_by_user_id"}).
			AddRow(int64(42), "Kestrel Imaging", "", "400 Harbor Blvd", "+15551234567", int64(7)))
	env.mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(8), time.Now()))
	env.mock.ExpectExec("INSERT INTO organization_members").
		WithArgs(int64(8), int64(42), "Radiologist").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := env.do(t, http.MethodPost, "/orgs/42/radiologists", map[string]string{
		"firstName": "Dana",
		"lastName":  "Reyes",
		"email":     "dana@kestrel.io",
	}, env.token(t, 7))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		TempPassword string `json:"tempPassword"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TempPassword)
}

func TestLogoUploadAndFetch(t *testing.T) {
	env := newTestEnv(t)

	orgRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "name", "logo", "address", "phone_number", "created_by_user_id"}).
			AddRow(int64(42), "Kestrel Imaging", "", "400 Harbor Blvd", "+15551234567", int64(7))
	}

	env.expectIdentity(t, 7, false)
	env.mock.ExpectQuery("SELECT (.+) FROM organizations WHERE id").WillReturnRows(orgRow())
	env.mock.ExpectExec("UPDATE organizations").WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPut, "/orgs/42/logo", strings.NewReader("png bytes"))
	req.Header.Set("Authorization", "Bearer "+env.token(t, 7))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.expectIdentity(t, 7, false)
	fetch := env.do(t, http.MethodGet, "/orgs/42/logo", nil, env.token(t, 7))
	require.Equal(t, http.StatusOK, fetch.Code)
	assert.Equal(t, "image/png", fetch.Header().Get("Content-Type"))
	assert.Equal(t, "png bytes", fetch.Body.String())
}

func TestRouteTemplate_UsedForUnmatched(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListReports_RejectsBadStatusFilter(t *testing.T) {
	env := newTestEnv(t)
	env.expectIdentity(t, 7, false)

	rec := env.do(t, http.MethodGet, "/reports?status=Archived", nil, env.token(t, 7))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
