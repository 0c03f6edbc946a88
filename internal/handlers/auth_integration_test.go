package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aidalert/aidalert/internal/handlers/testutil"
	"github.com/aidalert/aidalert/internal/models"
)

func TestAuthHandler_RegisterLoginMe(t *testing.T) {
	env := testutil.NewEnv(t)

	payload := map[string]any{
		"username":   "river.reporter",
		"email":      "River@Example.com",
		"password":   "AuthPassw0rd!",
		"first_name": "River",
		"phone":      "5550001111",
	}
	w := env.Request(http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := testutil.DecodeResponse(t, w)
	require.True(t, resp.Success)
	var registered testutil.LoginResult
	testutil.DecodeInto(t, resp.Data, &registered)
	require.NotEmpty(t, registered.Token)
	require.Equal(t, "river@example.com", registered.User.Email)
	require.Equal(t, models.RoleUser, registered.User.Role)

	// Email works as the login identifier regardless of case.
	login := env.Login("river@example.com", "AuthPassw0rd!")
	require.Equal(t, registered.User.ID, login.User.ID)

	me := env.Request(http.MethodGet, "/api/auth/me", nil, login.Token)
	require.Equal(t, http.StatusOK, me.Code)
	meResp := testutil.DecodeResponse(t, me)
	require.True(t, meResp.Success)
	var meData map[string]any
	testutil.DecodeInto(t, meResp.Data, &meData)
	require.Equal(t, login.User.ID, meData["id"])
	require.Equal(t, "river.reporter", meData["username"])
}

func TestAuthHandler_LoginRejectsBadCredentials(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser(models.RoleUser, "AuthPassw0rd!")

	w := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": user.Username,
		"password":   "wrong-password",
	}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := testutil.DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
}

func TestAuthHandler_RegisterRejectsAdminRole(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodPost, "/api/auth/register", map[string]any{
		"username": "sneaky",
		"email":    "sneaky@example.com",
		"password": "AuthPassw0rd!",
		"role":     "admin",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestAuthHandler_MeRequiresToken(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.Request(http.MethodGet, "/api/auth/me", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_PasswordResetFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser(models.RoleUser, "OriginalPassw0rd!")

	w := env.Request(http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": user.Email,
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The code is delivered out of band; read the stored token to fetch it is
	// not possible because only its hash persists. Exercise the negative path.
	w = env.Request(http.MethodPost, "/api/auth/verify-reset-code", map[string]string{
		"email": user.Email,
		"code":  "000000",
	}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())

	// Unknown emails get the same response as known ones.
	w = env.Request(http.MethodPost, "/api/auth/forgot-password", map[string]string{
		"email": "nobody@aidalert.test",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
