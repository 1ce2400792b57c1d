package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) RunScheduledFetch(context.Context) error {
	f.calls++
	return f.err
}

func getTrigger(h *TriggerHandler, authorization string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/cron", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	_ = h.Trigger(e.NewContext(req, rec))
	return rec
}

func TestTriggerHandler_OpenWhenNoSecret(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{}
	h := NewTriggerHandler(fetcher, "", quietLogger())

	rec := getTrigger(h, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"fetch completed"}`, rec.Body.String())
	assert.Equal(t, 1, fetcher.calls)
}

func TestTriggerHandler_BearerAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantCalls     int
	}{
		{
			name:          "correct token",
			authorization: "Bearer s3cret",
			wantStatus:    http.StatusOK,
			wantCalls:     1,
		},
		{
			name:          "wrong token",
			authorization: "Bearer nope",
			wantStatus:    http.StatusUnauthorized,
			wantCalls:     0,
		},
		{
			name:          "missing header",
			authorization: "",
			wantStatus:    http.StatusUnauthorized,
			wantCalls:     0,
		},
		{
			name:          "wrong scheme",
			authorization: "Basic s3cret",
			wantStatus:    http.StatusUnauthorized,
			wantCalls:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fetcher := &fakeFetcher{}
			h := NewTriggerHandler(fetcher, "s3cret", quietLogger())

			rec := getTrigger(h, tt.authorization)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, fetcher.calls)
		})
	}
}

func TestTriggerHandler_FetchError(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	h := NewTriggerHandler(fetcher, "", quietLogger())

	rec := getTrigger(h, "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"fetch failed"}`, rec.Body.String())
}
