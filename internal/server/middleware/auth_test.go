package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vyre/backend/internal/security"
	userdomain "vyre/backend/internal/user/domain"
)

type fakeUsers struct {
	users map[string]*userdomain.User
	err   error
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*userdomain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *security.TokenCodec, *fakeUsers) {
	t.Helper()
	codec := security.NewTestTokenCodec()
	users := &fakeUsers{users: map[string]*userdomain.User{
		"u1": {ID: "u1", CompanyID: "c1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Role: userdomain.RoleRecruiter, IsActive: true},
		"u2": {ID: "u2", CompanyID: "c1", Email: "off@example.com", Role: userdomain.RoleAdmin, IsActive: false},
	}}
	return NewAuthenticator(codec, users), codec, users
}

func accessFor(t *testing.T, codec *security.TokenCodec, id string) string {
	t.Helper()
	tok, _, err := codec.IssueAccess(security.AccessSubject{UserID: id, Email: id + "@example.com", Role: "recruiter"})
	require.NoError(t, err)
	return tok
}

func TestAuthenticate_Success(t *testing.T) {
	a, codec, _ := newTestAuthenticator(t)
	s, err := a.Authenticate(context.Background(), "Bearer "+accessFor(t, codec, "u1"))
	require.NoError(t, err)
	assert.Equal(t, &Summary{UserID: "u1", CompanyID: "c1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Role: userdomain.RoleRecruiter}, s)
}

func TestAuthenticate_SchemeCaseInsensitive(t *testing.T) {
	a, codec, _ := newTestAuthenticator(t)
	for _, scheme := range []string{"bearer ", "BEARER ", "BeArEr  "} {
		_, err := a.Authenticate(context.Background(), scheme+accessFor(t, codec, "u1"))
		assert.NoError(t, err, scheme)
	}
}

func TestAuthenticate_Errors(t *testing.T) {
	a, codec, _ := newTestAuthenticator(t)
	refresh, _, err := codec.IssueRefresh("u1")
	require.NoError(t, err)
	expired, _, err := codec.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).IssueAccess(security.AccessSubject{UserID: "u1"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   error
	}{
		{"empty", "", ErrMissingOrMalformedToken},
		{"basic scheme", "Basic dXNlcjpwYXNz", ErrMissingOrMalformedToken},
		{"bearer without token", "Bearer ", ErrMissingOrMalformedToken},
		{"token without scheme", accessFor(t, codec, "u1"), ErrMissingOrMalformedToken},
		{"garbage", "Bearer not.a.jwt", security.ErrInvalidToken},
		{"refresh token", "Bearer " + refresh, security.ErrInvalidToken},
		{"expired", "Bearer " + expired, security.ErrTokenExpired},
		{"unknown user", "Bearer " + accessFor(t, codec, "ghost"), ErrUnknownUser},
		{"inactive user", "Bearer " + accessFor(t, codec, "u2"), ErrUnknownUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := a.Authenticate(context.Background(), tc.header)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthenticate_UnknownUserIsInvalidToken(t *testing.T) {
	assert.ErrorIs(t, ErrUnknownUser, security.ErrInvalidToken)
}

func TestAuthenticate_StoreError(t *testing.T) {
	a, codec, users := newTestAuthenticator(t)
	users.err = errors.New("db down")
	_, err := a.Authenticate(context.Background(), "Bearer "+accessFor(t, codec, "u1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, security.ErrInvalidToken)
}

func TestMiddleware_StatusAndMessages(t *testing.T) {
	a, codec, _ := newTestAuthenticator(t)
	expired, _, _ := codec.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).IssueAccess(security.AccessSubject{UserID: "u1"})
	noSecret := NewAuthenticator(security.NewTokenCodec(nil, nil, "x", time.Minute, time.Hour), &fakeUsers{})

	cases := []struct {
		name    string
		auth    *Authenticator
		header  string
		status  int
		message string
	}{
		{"missing", a, "", http.StatusUnauthorized, "Access denied. No token provided."},
		{"invalid", a, "Bearer abc.def.ghi", http.StatusUnauthorized, "Invalid token."},
		{"expired", a, "Bearer " + expired, http.StatusUnauthorized, "Token expired."},
		{"unknown user", a, "Bearer " + accessFor(t, codec, "ghost"), http.StatusUnauthorized, "Invalid token. User not found."},
		{"missing secret", noSecret, "Bearer abc.def.ghi", http.StatusInternalServerError, "Server configuration error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := tc.auth.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, tc.status, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tc.message, body["message"])
		})
	}
}

func TestMiddleware_AttachesSummary(t *testing.T) {
	a, codec, _ := newTestAuthenticator(t)
	var got *Summary
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SummaryFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessFor(t, codec, "u1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "c1", got.CompanyID)
}

func TestSummaryFrom_Empty(t *testing.T) {
	s, ok := SummaryFrom(context.Background())
	assert.False(t, ok)
	assert.Nil(t, s)
	_, ok = SummaryFrom(WithSummary(context.Background(), nil))
	assert.False(t, ok)
}
