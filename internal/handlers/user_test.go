package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Tombunzel/HarmonApp/internal/authz"
	"github.com/Tombunzel/HarmonApp/internal/models"
	"github.com/Tombunzel/HarmonApp/internal/mykafka"
)

func TestUserRegister(t *testing.T) {
	db := initTestDB(t)
	h := UserHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()

	payload := map[string]string{
		"username":      "test_user",
		"email":         "test_user@example.com",
		"password":      "password",
		"name":          "Test User",
		"date_of_birth": "1990-01-01",
	}
	c, rec := newJSONContext(t, e, http.MethodPost, "/users/register", payload)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "test_user", created.Username)
	require.Equal(t, models.RoleUser, created.Role)
	require.NotEmpty(t, created.ID)

	// the hash is never serialized
	require.NotContains(t, rec.Body.String(), "password")

	// duplicate username is rejected
	cDup, _ := newJSONContext(t, e, http.MethodPost, "/users/register", payload)
	requireHTTPError(t, h.Register(cDup), http.StatusBadRequest)
}

func TestUserRegisterMissingFields(t *testing.T) {
	db := initTestDB(t)
	h := UserHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()

	c, _ := newJSONContext(t, e, http.MethodPost, "/users/register", map[string]string{"username": "no_password"})
	requireHTTPError(t, h.Register(c), http.StatusBadRequest)
}

func TestUserLogin(t *testing.T) {
	db := initTestDB(t)
	h := UserHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()
	createTestUser(t, db, "test_user", models.RoleUser)

	c, rec := newJSONContext(t, e, http.MethodPost, "/users/login", map[string]string{
		"username": "test_user",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
	require.Equal(t, "bearer", resp["token_type"])

	// wrong password and unknown username fail identically
	cBad, _ := newJSONContext(t, e, http.MethodPost, "/users/login", map[string]string{
		"username": "test_user",
		"password": "wrong",
	})
	requireHTTPError(t, h.Login(cBad), http.StatusUnauthorized)

	cUnknown, _ := newJSONContext(t, e, http.MethodPost, "/users/login", map[string]string{
		"username": "nobody",
		"password": "password",
	})
	requireHTTPError(t, h.Login(cUnknown), http.StatusUnauthorized)
}

func TestUserMe(t *testing.T) {
	db := initTestDB(t)
	h := UserHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()
	user := createTestUser(t, db, "test_user", models.RoleUser)

	c, rec := newJSONContext(t, e, http.MethodGet, "/users/me", nil)
	authz.SetUserContext(c, user)

	require.NoError(t, h.Me(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, user.ID, got.ID)
}

func TestUserUpdateSelfOnly(t *testing.T) {
	db := initTestDB(t)
	h := UserHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()
	user := createTestUser(t, db, "test_user", models.RoleUser)
	other := createTestUser(t, db, "other_user", models.RoleUser)

	// updating someone else is forbidden
	c, _ := newJSONContext(t, e, http.MethodPatch, "/", map[string]string{"name": "Hacked"})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(other.ID))
	authz.SetUserContext(c, user)
	requireHTTPError(t, h.Update(c), http.StatusForbidden)

	// updating yourself works
	cSelf, rec := newJSONContext(t, e, http.MethodPatch, "/", map[string]string{"name": "New Name"})
	cSelf.SetParamNames("id")
	cSelf.SetParamValues(fmt.Sprint(user.ID))
	authz.SetUserContext(cSelf, user)
	require.NoError(t, h.Update(cSelf))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.Equal(t, "New Name", stored.Name)
}

func TestUserUpdateRoleRequiresAdmin(t *testing.T) {
	db := initTestDB(t)
	h := UserHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()
	user := createTestUser(t, db, "test_user", models.RoleUser)

	c, _ := newJSONContext(t, e, http.MethodPatch, "/", map[string]string{"role": models.RoleAdmin})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(user.ID))
	authz.SetUserContext(c, user)
	requireHTTPError(t, h.Update(c), http.StatusForbidden)
}

func TestUserListAdmin(t *testing.T) {
	db := initTestDB(t)
	h := UserHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()
	createTestUser(t, db, "user_a", models.RoleUser)
	target := createTestUser(t, db, "user_b", models.RoleUser)

	// single lookup by id returns a one-element list
	c, rec := newJSONContext(t, e, http.MethodGet, fmt.Sprintf("/admin/users?user_id=%d", target.ID), nil)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	require.Equal(t, target.ID, users[0].ID)

	// unknown id is a 404
	cMissing, _ := newJSONContext(t, e, http.MethodGet, "/admin/users?user_id=999", nil)
	requireHTTPError(t, h.List(cMissing), http.StatusNotFound)

	// plain listing returns everyone on the first page
	cAll, recAll := newJSONContext(t, e, http.MethodGet, "/admin/users", nil)
	require.NoError(t, h.List(cAll))
	require.NoError(t, json.Unmarshal(recAll.Body.Bytes(), &users))
	require.Len(t, users, 2)
}

func TestUserDeleteSelfOnly(t *testing.T) {
	db := initTestDB(t)
	h := UserHandler{DB: db, Tokens: testTokens(), Producer: &mykafka.Producer{}}
	e := echo.New()
	user := createTestUser(t, db, "test_user", models.RoleUser)
	other := createTestUser(t, db, "other_user", models.RoleUser)

	c, _ := newJSONContext(t, e, http.MethodDelete, "/", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(other.ID))
	authz.SetUserContext(c, user)
	requireHTTPError(t, h.Delete(c), http.StatusForbidden)

	cSelf, rec := newJSONContext(t, e, http.MethodDelete, "/", nil)
	cSelf.SetParamNames("id")
	cSelf.SetParamValues(fmt.Sprint(user.ID))
	authz.SetUserContext(cSelf, user)
	require.NoError(t, h.Delete(cSelf))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Count(&count).Error)
	require.Zero(t, count)
}
