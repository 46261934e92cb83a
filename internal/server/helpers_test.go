package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSecret = "server-test-secret-0123456789abcdef"

type testEnv struct {
	srv *Server
	app *fiber.App
	mr  *miniredis.Miniredis
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:        "0",
		Env:         "test",
		JWTSecret:   testSecret,
		JWTTTL:      time.Hour,
		JWTIssuer:   "inkwell-api",
		JWTAudience: "inkwell-client",
		DBDriver:    database.DriverSQLite,
		DBPath:      filepath.Join(t.TempDir(), "inkwell.db"),
	}
}

// newTestEnv builds a server over a fresh SQLite file and miniredis, with an
// admin "root" and an editor "ed" (both password "pass1234").
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = srv.userService.CreateUser(ctx, service.CreateUserInput{Username: "root", Password: "pass1234", Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = srv.userService.CreateUser(ctx, service.CreateUserInput{Username: "ed", Password: "pass1234"})
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.App(), mr: mr}
}

type request struct {
	method  string
	path    string
	body    any
	token   string
	visitor string
}

func (e *testEnv) do(t *testing.T, r request) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.visitor != "" {
		req.Header.Set(visitorTokenHeader, r.visitor)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp, body := e.do(t, request{
		method: http.MethodPost,
		path:   "/api/auth/login",
		body:   fiber.Map{"username": username, "password": password},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res service.LoginResult
	require.NoError(t, json.Unmarshal(body, &res))
	return res.Token
}

func (e *testEnv) createPost(t *testing.T, token, title string) models.Post {
	t.Helper()
	resp, body := e.do(t, request{
		method: http.MethodPost,
		path:   "/api/posts",
		token:  token,
		body: service.CreatePostInput{
			Title:    title,
			Content:  "<p>content</p>",
			Author:   "Ed",
			ImageURL: "/uploads/cover.png",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var post models.Post
	require.NoError(t, json.Unmarshal(body, &post))
	return post
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var e models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e), string(body))
	return e
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	var got Pagination
	app.Get("/", func(c *fiber.Ctx) error {
		got = parsePagination(c, 20)
		return nil
	})

	tests := []struct {
		query string
		want  Pagination
	}{
		{"", Pagination{Limit: 20}},
		{"?limit=5&offset=10", Pagination{Limit: 5, Offset: 10}},
		{"?limit=0&offset=-3", Pagination{Limit: 20}},
		{"?limit=1000", Pagination{Limit: 100}},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, tt.want, got, tt.query)
	}
}
