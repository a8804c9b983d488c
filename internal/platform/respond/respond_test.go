package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSuccess_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "Created", map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Created", body["message"])
	assert.Equal(t, map[string]any{"id": "1"}, body["data"])
}

func TestSuccess_NilDataIsEmptyObject(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, "Done", nil)
	assert.JSONEq(t, `{"status":"success","message":"Done","data":{}}`, rec.Body.String())
}

func TestError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusBadRequest, "Validation failed", FieldError{Field: "email", Message: "Email is required"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Validation failed","errors":[{"field":"email","message":"Email is required"}]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Error(rec, http.StatusUnauthorized, "Token expired.")
	assert.JSONEq(t, `{"status":"error","message":"Token expired."}`, rec.Body.String())
}

func TestInternal_HidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	Internal(rec, req, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}
	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@b.co"}`, false},
		{"unknown field", `{"email":"a@b.co","admin":true}`, true},
		{"malformed", `{"email":`, true},
		{"trailing data", `{"email":"a@b.co"}{}`, true},
		{"empty", ``, true},
		{"too large", `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadBody)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "a@b.co", p.Email)
		})
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Total: 25, Pages: 3, CurrentPage: 1, HasNext: true, HasPrev: false}, NewPagination(25, 1, 10))
	assert.Equal(t, Pagination{Total: 25, Pages: 3, CurrentPage: 3, HasNext: false, HasPrev: true}, NewPagination(25, 3, 10))
	assert.Equal(t, Pagination{Total: 0, Pages: 0, CurrentPage: 1}, NewPagination(0, 0, 0))
}

func TestPageParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/team?page=2&limit=500", nil)
	page, limit := PageParams(req, 10, 100)
	assert.Equal(t, 2, page)
	assert.Equal(t, 100, limit)

	req = httptest.NewRequest(http.MethodGet, "/team?page=-1&limit=abc", nil)
	page, limit = PageParams(req, 10, 100)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)
}

func TestPageParams_CapsHugePage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/team?page=9223372036854775807&limit=100", nil)
	page, limit := PageParams(req, 10, 100)
	assert.Equal(t, MaxPage, page)
	assert.Positive(t, (page-1)*limit)
}

func TestIntParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/a?offset=20&limit=-3&x=y", nil)
	assert.Equal(t, 20, IntParam(req, "offset", 0))
	assert.Equal(t, 50, IntParam(req, "limit", 50))
	assert.Equal(t, 7, IntParam(req, "x", 7))
	assert.Equal(t, 5, IntParam(req, "missing", 5))
}
