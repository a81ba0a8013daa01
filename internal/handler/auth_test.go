package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/acidash/dashboard-api/internal/middleware"
	"github.com/acidash/dashboard-api/internal/model"
	"github.com/acidash/dashboard-api/internal/repository"
	"github.com/acidash/dashboard-api/internal/service"
	"github.com/acidash/dashboard-api/internal/utils"
)

// memStore is a fixed-content credential store for handler tests.
type memStore struct {
	users map[string]model.User
}

func (s *memStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	u, ok := s.users[username]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *memStore) List(_ context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memStore) FindByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *memStore) RolesForUser(context.Context, uint64) ([]model.Role, error) { return nil, nil }
func (s *memStore) ToolsForUser(context.Context, uint64) ([]model.Tool, error) { return nil, nil }

func (s *memStore) UpdatePasswordHash(_ context.Context, id uint64, hash string) error {
	for name, u := range s.users {
		if u.ID == id {
			u.PasswordHash = hash
			s.users[name] = u
			return nil
		}
	}
	return repository.ErrNotFound
}

const handlerTestPassword = "Str0ng!Enough"

func newTestHandler(c *qt.C) (*AuthHandler, *utils.TokenIssuer) {
	c.Helper()
	hash, err := utils.HashPassword(handlerTestPassword, 10)
	c.Assert(err, qt.IsNil)
	store := &memStore{users: map[string]model.User{
		"alice": {ID: 1, Username: "alice", Email: "alice@example.com",
			PasswordHash: hash, IsActive: true},
	}}
	issuer := utils.NewTokenIssuer("access-secret", "refresh-secret", 30, 7)
	auth := service.NewAuthenticator(store, issuer, nil, nil, nil, 12, 10, zerolog.Nop())
	return NewAuthHandler(auth, nil), issuer
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	c := qt.New(t)
	h, issuer := newTestHandler(c)
	e := echo.New()
	e.POST("/api/auth/login", h.Login)

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"`+handlerTestPassword+`"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)

	var resp struct {
		AccessToken  string          `json:"access_token"`
		RefreshToken string          `json:"refresh_token"`
		TokenType    string          `json:"token_type"`
		User         service.Profile `json:"user"`
	}
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	c.Assert(resp.TokenType, qt.Equals, "bearer")
	c.Assert(resp.User.Username, qt.Equals, "alice")

	claims, err := issuer.Verify(resp.AccessToken, utils.TokenTypeAccess)
	c.Assert(err, qt.IsNil)
	c.Assert(claims.UserID, qt.Equals, uint64(1))

	// The password hash must never appear in the profile payload.
	raw, err := json.Marshal(resp.User)
	c.Assert(err, qt.IsNil)
	c.Assert(strings.Contains(string(raw), "password"), qt.IsFalse)
}

func TestLoginEndpointRejections(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestHandler(c)
	e := echo.New()
	e.POST("/api/auth/login", h.Login)

	rec := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"WrongPass1!x"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	// Unknown username gets the identical status and body.
	other := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"nobody","password":"WrongPass1!x"}`)
	c.Assert(other.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(other.Body.String(), qt.Equals, rec.Body.String())

	missing := doJSON(e, http.MethodPost, "/api/auth/login", `{"username":"alice"}`)
	c.Assert(missing.Code, qt.Equals, http.StatusBadRequest)
}

func TestRefreshEndpoint(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestHandler(c)
	e := echo.New()
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/refresh", h.Refresh)

	login := doJSON(e, http.MethodPost, "/api/auth/login",
		`{"username":"alice","password":"`+handlerTestPassword+`"}`)
	c.Assert(login.Code, qt.Equals, http.StatusOK)
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	c.Assert(json.Unmarshal(login.Body.Bytes(), &resp), qt.IsNil)

	ok := doJSON(e, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+resp.RefreshToken+`"}`)
	c.Assert(ok.Code, qt.Equals, http.StatusOK)

	// The access token must not work as a refresh token.
	confused := doJSON(e, http.MethodPost, "/api/auth/refresh",
		`{"refresh_token":"`+resp.AccessToken+`"}`)
	c.Assert(confused.Code, qt.Equals, http.StatusUnauthorized)
}

func TestResetPasswordEndpointWeakPassword(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestHandler(c)
	e := echo.New()
	e.POST("/api/auth/reset-password", h.ResetPassword)

	rec := doJSON(e, http.MethodPost, "/api/auth/reset-password",
		`{"username":"alice","current_password":"`+handlerTestPassword+`","new_password":"weak"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	var resp struct {
		Error   string   `json:"error"`
		Reasons []string `json:"reasons"`
	}
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &resp), qt.IsNil)
	c.Assert(resp.Error, qt.Equals, "weak password")
	c.Assert(len(resp.Reasons) > 0, qt.IsTrue)
}

func TestJWTAuthGate(t *testing.T) {
	c := qt.New(t)
	_, issuer := newTestHandler(c)
	e := echo.New()
	protected := e.Group("/api", middleware.JWTAuth(issuer))
	protected.GET("/ping", func(c echo.Context) error {
		id, _ := middleware.CurrentUserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": id})
	})

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	// Refresh token on an access-only gate.
	refresh, err := issuer.IssueRefresh(1, "alice")
	c.Assert(err, qt.IsNil)
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+refresh.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)

	// Valid access token.
	access, err := issuer.IssueAccess(1, "alice")
	c.Assert(err, qt.IsNil)
	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+access.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(strings.Contains(rec.Body.String(), `"user_id":1`), qt.IsTrue)
}
