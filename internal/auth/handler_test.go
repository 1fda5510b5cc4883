package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatehouse/internal/logger"
	"gatehouse/internal/session"
	"gatehouse/internal/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter mounts the handler behind a middleware that resolves the
// session cookie the same way the server does.
func newTestRouter(f *serviceFixture) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if cookie, err := c.Cookie(f.mgr.CookieName()); err == nil {
			sess, user, err := f.mgr.ValidateSession(c.Request.Context(), cookie)
			if err == nil && sess != nil {
				ctx := session.WithIdentity(c.Request.Context(), session.Identity{User: user, Session: sess})
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	})
	NewHandler(f.svc, f.mgr, logger.Discard()).RegisterRoutes(r)
	return r
}

func postForm(r http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", session.DefaultCookieName)
	return nil
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func credentials(username, pw string) url.Values {
	return url.Values{"username": {username}, "password": {pw}}
}

func TestHandler_SignupLoginLogout(t *testing.T) {
	f := newServiceFixture(t)
	r := newTestRouter(f)

	w := postForm(r, "/signup", credentials("alice", "secret1"))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cookie := sessionCookie(t, w)
	assert.Len(t, cookie.Value, 40)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	w = get(r, "/", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var home HomeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &home))
	require.NotNil(t, home.User)
	assert.Equal(t, "alice", home.User.Username)
	assert.NotContains(t, w.Body.String(), "argon2")

	w = get(r, "/login", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = postForm(r, "/logout", nil, cookie)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	blank := sessionCookie(t, w)
	assert.Empty(t, blank.Value)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")

	w = get(r, "/", cookie)
	assert.JSONEq(t, `{"user":null}`, w.Body.String())

	w = postForm(r, "/login", credentials("alice", "secret1"))
	require.Equal(t, http.StatusFound, w.Code)
	assert.NotEqual(t, cookie.Value, sessionCookie(t, w).Value)
}

func TestHandler_SignupErrors(t *testing.T) {
	f := newServiceFixture(t)
	r := newTestRouter(f)

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"short username", credentials("ab", "secret1"), "Invalid username"},
		{"uppercase username", credentials("Alice", "secret1"), "Invalid username"},
		{"short password", credentials("alice", "12345"), "Invalid password"},
		{"missing fields", url.Values{}, "Invalid username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(r, "/signup", tt.form)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeMessage(t, w))
			assert.Empty(t, w.Header().Get("Set-Cookie"))
		})
	}

	require.Equal(t, http.StatusFound, postForm(r, "/signup", credentials("alice", "secret1")).Code)
	w := postForm(r, "/signup", credentials("alice", "secret2"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already taken", decodeMessage(t, w))
}

func TestHandler_LoginDoesNotRevealUsernames(t *testing.T) {
	f := newServiceFixture(t)
	r := newTestRouter(f)
	require.Equal(t, http.StatusFound, postForm(r, "/signup", credentials("alice", "secret1")).Code)

	wrongPw := postForm(r, "/login", credentials("alice", "nope-nope"))
	unknown := postForm(r, "/login", credentials("mallory", "secret1"))

	assert.Equal(t, http.StatusBadRequest, wrongPw.Code)
	assert.Equal(t, wrongPw.Code, unknown.Code)
	assert.Equal(t, wrongPw.Body.String(), unknown.Body.String())
	assert.Equal(t, "Incorrect username or password", decodeMessage(t, unknown))
}

func TestHandler_JSONBody(t *testing.T) {
	f := newServiceFixture(t)
	r := newTestRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(`{"username":"bob","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decodeMessage(t, w))
}

func TestHandler_LogoutWithoutSession(t *testing.T) {
	f := newServiceFixture(t)
	r := newTestRouter(f)

	for _, w := range []*httptest.ResponseRecorder{
		postForm(r, "/logout", nil),
		get(r, "/logout"),
		get(r, "/logout", &http.Cookie{Name: session.DefaultCookieName, Value: "stale"}),
	} {
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Unauthorized", decodeMessage(t, w))
	}
}

func TestHandler_FormPages(t *testing.T) {
	f := newServiceFixture(t)
	r := newTestRouter(f)

	for _, path := range []string{"/login", "/signup"} {
		w := get(r, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, decodeMessage(t, w), path)
	}

	w := get(r, "/")
	assert.JSONEq(t, `{"user":null}`, w.Body.String())
}

func TestNewUserResponse(t *testing.T) {
	assert.Nil(t, NewUserResponse(nil))

	got := NewUserResponse(&users.User{ID: "u1", Username: "carol", PasswordHash: "secret-hash"})
	assert.Equal(t, &UserResponse{ID: "u1", Username: "carol"}, got)
}
