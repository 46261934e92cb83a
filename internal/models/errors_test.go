package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"inkwell/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewUnauthorizedError("no"), http.StatusUnauthorized},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewNotFoundError("Post", 1), http.StatusNotFound},
		{NewDuplicateCommentError(), http.StatusConflict},
		{NewStoreError(errors.New("down")), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewNotFoundError("Post", 2)), http.StatusNotFound},
		{fiber.NewError(http.StatusTeapot, "teapot"), http.StatusTeapot},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestAppError_Is(t *testing.T) {
	err := fmt.Errorf("load: %w", NewNotFoundError("Post", 7))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)

	cause := errors.New("connection refused")
	storeErr := NewStoreError(cause)
	assert.ErrorIs(t, storeErr, ErrStore)
	assert.ErrorIs(t, storeErr, cause)
}

func TestRespondWithError_HidesStoreDetails(t *testing.T) {
	var logs bytes.Buffer
	middleware.SetLogOutput(&logs, "test")
	t.Cleanup(func() { middleware.SetLogOutput(os.Stdout, "test") })

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Respond(c, NewStoreError(errors.New("pq: password authentication failed")))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password authentication")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, CodeInternal, body.Code)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Contains(t, logs.String(), "pq: password authentication failed")
}

func TestRespondWithError_ClientErrorsAreNotLogged(t *testing.T) {
	var logs bytes.Buffer
	middleware.SetLogOutput(&logs, "test")
	t.Cleanup(func() { middleware.SetLogOutput(os.Stdout, "test") })

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Respond(c, NewNotFoundError("post", 7))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, logs.String())
}

func TestPost_AggregateHelpers(t *testing.T) {
	p := &Post{
		ViewedBy: []PostView{{VisitorToken: "a"}, {VisitorToken: "b"}},
		Comments: []Comment{{VisitorToken: "a", Rating: 5}, {VisitorToken: "c", Rating: 2}},
	}
	assert.Equal(t, []string{"a", "b"}, p.VisitorTokens())
	assert.True(t, p.HasViewed("b"))
	assert.False(t, p.HasViewed("c"))
	assert.True(t, p.HasCommented("c"))
	assert.False(t, p.HasCommented("b"))

	p.ComputeAverageRating()
	assert.InDelta(t, 3.5, p.AverageRating, 0.0001)
}
