package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Hanoi", "hanoi"},
		{"spaces", "Ho Chi Minh City", "ho-chi-minh-city"},
		{"punctuation collapsed", "Hội An -- Old Town!", "hội-an-old-town"},
		{"leading and trailing junk", "  ***Da Nang***  ", "da-nang"},
		{"digits kept", "Top 10 Beaches", "top-10-beaches"},
		{"empty", "", ""},
		{"only punctuation", "!!!", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Slugify(tc.in))
		})
	}
}

func TestNewPagination(t *testing.T) {
	t.Run("middle page", func(t *testing.T) {
		p := NewPagination(2, 10, 35)
		assert.Equal(t, 2, p.CurrentPage)
		assert.Equal(t, 4, p.TotalPages)
		assert.Equal(t, 35, p.TotalItems)
		assert.True(t, p.HasNextPage)
		assert.True(t, p.HasPrevPage)
	})

	t.Run("single page", func(t *testing.T) {
		p := NewPagination(1, 10, 7)
		assert.Equal(t, 1, p.TotalPages)
		assert.False(t, p.HasNextPage)
		assert.False(t, p.HasPrevPage)
	})

	t.Run("empty result", func(t *testing.T) {
		p := NewPagination(1, 10, 0)
		assert.Equal(t, 0, p.TotalPages)
		assert.False(t, p.HasNextPage)
	})

	t.Run("defaults applied", func(t *testing.T) {
		p := NewPagination(0, 0, 25)
		assert.Equal(t, 1, p.CurrentPage)
		assert.Equal(t, 10, p.Limit)
		assert.Equal(t, 3, p.TotalPages)
	})
}

func TestErrorEnvelope(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"bad request", ErrBadRequest, http.StatusBadRequest, CodeBadRequest},
		{"not found", ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"conflict", ErrConflict, http.StatusConflict, CodeConflict},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, CodeUnauthenticated},
		{"forbidden", ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"upstream", ErrUpstream, http.StatusBadGateway, CodeUpstream},
		{"unknown degrades to 500", assert.AnError, http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			ErrorEnvelope(rec, req, tc.err, "boom")

			assert.Equal(t, tc.wantStatus, rec.Code)
			var env Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tc.wantCode, env.Code)
		})
	}
}

func TestWriteEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteEnvelope(rec, req, http.StatusOK, "Success", map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, CodeOK, env.Code)
	assert.Equal(t, "Success", env.Message)
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Hue"}`))

		var dst payload
		require.NoError(t, DecodeJSONBody(rec, req, &dst))
		assert.Equal(t, "Hue", dst.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))

		var dst payload
		err := DecodeJSONBody(rec, req, &dst)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not be empty")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))

		var dst payload
		require.Error(t, DecodeJSONBody(rec, req, &dst))
	})

	t.Run("trailing garbage", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))

		var dst payload
		err := DecodeJSONBody(rec, req, &dst)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "single JSON value")
	})
}
