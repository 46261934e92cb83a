// Package client is a small HTTP client for the blog API, used by blogctl.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout bounds every request when Client.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Client talks to one API server. Token, when set, is sent as a bearer token.
type Client struct {
	BaseURL string
	Timeout time.Duration
	Token   string
}

// New returns a client for baseURL, e.g. "http://localhost:5000".
func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), Timeout: DefaultTimeout}
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// CommentRequest is the body of a new comment.
type CommentRequest struct {
	Username     string `json:"username"`
	Comment      string `json:"comment"`
	Rating       int    `json:"rating"`
	VisitorToken string `json:"visitor_token"`
}

func (c *Client) url(path string, query url.Values) string {
	u := c.BaseURL + "/api" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// send executes a and decodes a 2xx body into out (when non-nil).
func (c *Client) send(a *fiber.Agent, out any) error {
	a.Timeout(c.timeout())
	if c.Token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.Token)
	}

	status, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("request failed: %w", errors.Join(errs...))
	}

	if status < 200 || status >= 300 {
		var e models.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(body))
		}
		return &APIError{Status: status, Code: e.Code, Message: e.Error}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ViewPost reads post id as the given visitor, counting the view once.
func (c *Client) ViewPost(id uint, visitorToken string) (*models.Post, error) {
	a := fiber.Get(c.url("/posts/"+strconv.FormatUint(uint64(id), 10), nil))
	a.Set("X-Visitor-Token", visitorToken)

	var post models.Post
	if err := c.send(a, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts returns a page of posts, newest first.
func (c *Client) ListPosts(limit, offset int) ([]models.Post, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	var posts []models.Post
	if err := c.send(fiber.Get(c.url("/posts", q)), &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// AddComment posts a comment on post id.
func (c *Client) AddComment(id uint, req CommentRequest) (*models.Comment, error) {
	a := fiber.Post(c.url("/posts/"+strconv.FormatUint(uint64(id), 10)+"/comments", nil))
	a.JSON(req)

	var comment models.Comment
	if err := c.send(a, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(username, password string) (*Session, error) {
	a := fiber.Post(c.url("/auth/login", nil))
	a.JSON(fiber.Map{"username": username, "password": password})

	var s Session
	if err := c.send(a, &s); err != nil {
		return nil, err
	}
	c.Token = s.Token
	return &s, nil
}
