// Package respond writes the JSON response envelope shared by every HTTP handler:
// {"status":"success","message":...,"data":...} and {"status":"error","message":...,"errors":[...]}.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// MaxBodyBytes caps request bodies decoded by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrBadBody is returned by DecodeJSON for empty, oversized, malformed or unknown-field bodies.
var ErrBadBody = errors.New("invalid request body")

// FieldError describes a validation problem with one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type successBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorBody struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("respond: encode response", "err", err)
	}
}

// Success writes a success envelope. A nil data is rendered as an empty object.
func Success(w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = struct{}{}
	}
	JSON(w, status, successBody{Status: "success", Message: message, Data: data})
}

// OK is Success with status 200.
func OK(w http.ResponseWriter, message string, data any) {
	Success(w, http.StatusOK, message, data)
}

// Error writes an error envelope with optional field errors.
func Error(w http.ResponseWriter, status int, message string, errs ...FieldError) {
	JSON(w, status, errorBody{Status: "error", Message: message, Errors: errs})
}

// Internal writes a generic 500. The cause is logged, never sent to the client.
func Internal(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	Error(w, http.StatusInternalServerError, "Internal server error")
}

// DecodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return ErrBadBody
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ErrBadBody
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return ErrBadBody
	}
	return nil
}

// Pagination is the page summary returned next to list results.
type Pagination struct {
	Total       int  `json:"total"`
	Pages       int  `json:"pages"`
	CurrentPage int  `json:"currentPage"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination computes the page summary for total items at page (1-based) with limit items per page.
func NewPagination(total, page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	pages := (total + limit - 1) / limit
	return Pagination{
		Total:       total,
		Pages:       pages,
		CurrentPage: page,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}

// MaxPage bounds the page query parameter so page*limit offsets stay small.
const MaxPage = 10000

// PageParams reads page and limit query parameters. Missing or invalid values fall back to
// page 1 and defaultLimit. Page is capped at MaxPage and limit at maxLimit.
func PageParams(r *http.Request, defaultLimit, maxLimit int) (page, limit int) {
	page = positiveInt(r.URL.Query().Get("page"), 1)
	if page > MaxPage {
		page = MaxPage
	}
	limit = positiveInt(r.URL.Query().Get("limit"), defaultLimit)
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// IntParam reads a non-negative integer query parameter, returning def when missing or invalid.
func IntParam(r *http.Request, name string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func positiveInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return def
	}
	return n
}
