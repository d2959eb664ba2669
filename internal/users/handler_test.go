package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tessera-saas/backend/internal/middleware"
	"github.com/tessera-saas/backend/internal/models"
)

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

// fakeProfileDB holds a single tenant user and applies the set/value pairs
// of the profile update the same way the SQL does.
type fakeProfileDB struct {
	user models.TenantUser
}

func (d *fakeProfileDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	for i, dst := range []**string{&d.user.FullName, &d.user.Bio, &d.user.Phone} {
		if args[1+2*i].(bool) {
			*dst = args[2+2*i].(*string)
		}
	}
	u := d.user
	return fakeRow{vals: []any{u.ID, u.Email, u.PasswordHash, u.FullName, u.Bio, u.Phone, u.IsActive, u.CreatedAt, u.UpdatedAt}}
}

func (d *fakeProfileDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *fakeProfileDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, pgx.ErrNoRows
}

func strPtr(s string) *string { return &s }

func newUsersRouter(db *fakeProfileDB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		user := db.user
		c.Set(middleware.ContextTenantUser, &user)
		c.Set(middleware.ContextDB, db)
	})
	h := NewHandler(zap.NewNop())
	r.GET("/api/users/me", h.Me)
	r.PUT("/api/users/me", h.UpdateMe)
	return r
}

func putProfile(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/api/users/me", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seededProfileDB() *fakeProfileDB {
	return &fakeProfileDB{user: models.TenantUser{
		ID:           7,
		Email:        "a@x.com",
		PasswordHash: "hash",
		FullName:     strPtr("Ada"),
		Bio:          strPtr("engineer"),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}}
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	r := newUsersRouter(seededProfileDB())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var user models.TenantUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "a@x.com", user.Email)
}

func TestUpdateMeSetsValue(t *testing.T) {
	db := seededProfileDB()
	r := newUsersRouter(db)

	w := putProfile(r, `{"full_name":"Grace","phone":"555-0100"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.TenantUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.NotNil(t, user.FullName)
	assert.Equal(t, "Grace", *user.FullName)
	require.NotNil(t, user.Phone)
	assert.Equal(t, "555-0100", *user.Phone)
	// A field absent from the body is untouched.
	require.NotNil(t, user.Bio)
	assert.Equal(t, "engineer", *user.Bio)
}

func TestUpdateMeExplicitNullClears(t *testing.T) {
	db := seededProfileDB()
	r := newUsersRouter(db)

	w := putProfile(r, `{"bio":null}`)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.TenantUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Nil(t, user.Bio)
	require.NotNil(t, user.FullName)
	assert.Equal(t, "Ada", *user.FullName)
}

func TestUpdateMeEmptyBodyChangesNothing(t *testing.T) {
	db := seededProfileDB()
	r := newUsersRouter(db)

	w := putProfile(r, `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	var user models.TenantUser
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	require.NotNil(t, user.FullName)
	assert.Equal(t, "Ada", *user.FullName)
	require.NotNil(t, user.Bio)
	assert.Equal(t, "engineer", *user.Bio)
	assert.Nil(t, user.Phone)
}

func TestUpdateMeRejectsMalformedBody(t *testing.T) {
	r := newUsersRouter(seededProfileDB())

	w := putProfile(r, `{"bio":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = putProfile(r, `{"bio":42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
