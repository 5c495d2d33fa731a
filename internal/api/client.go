// Package api is the typed HTTP client for the RuneQuest REST API.
// Every operation is a thin wrapper over one endpoint; non-2xx
// responses surface as *APIError with no retry or backoff.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"questlog/internal/domain"
)

// TokenSource supplies the bearer credential for outbound requests.
// When ok is false the request is sent unauthenticated.
type TokenSource interface {
	BearerToken(ctx context.Context) (string, bool)
}

// Client is bound to one base endpoint, e.g. http://localhost:8080/api.
type Client struct {
	BaseURL    string
	Tokens     TokenSource
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		BaseURL: baseURL,
		Tokens:  tokens,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == code
}

// --- auth ---

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (domain.LoginResponse, error) {
	var resp domain.LoginResponse
	err := c.do(ctx, http.MethodPost, "auth/login", domain.LoginRequest{Username: username, Password: password}, &resp)
	return resp, err
}

// --- users ---

// GetProfile fetches the authenticated identity.
func (c *Client) GetProfile(ctx context.Context) (domain.User, error) {
	var resp domain.User
	err := c.do(ctx, http.MethodGet, "users/profile", nil, &resp)
	return resp, err
}

// RegisterUser creates an account. The server answers 409 on a
// duplicate email or nickname.
func (c *Client) RegisterUser(ctx context.Context, req domain.UserCreateRequest) error {
	return c.do(ctx, http.MethodPost, "users/register", req, nil)
}

// UpdateUser changes mutable profile fields.
func (c *Client) UpdateUser(ctx context.Context, userID int64, req domain.UserUpdateRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("users/%d", userID), req, nil)
}

// ChangePassword sets a new password; 400 when it equals the current one.
func (c *Client) ChangePassword(ctx context.Context, userID int64, req domain.ChangePasswordRequest) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("users/%d/password", userID), req, nil)
}

// SelectAvatar equips an owned avatar by its stable icon name.
func (c *Client) SelectAvatar(ctx context.Context, avatarName string) error {
	return c.do(ctx, http.MethodPatch, "users/avatar/"+url.PathEscape(avatarName), nil, nil)
}

// --- tasks ---

func (c *Client) ListTasksByUser(ctx context.Context, userID int64) ([]domain.Task, error) {
	var resp []domain.Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("tasks/user/%d", userID), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, req domain.TaskCreateRequest) (domain.Task, error) {
	var resp domain.Task
	err := c.do(ctx, http.MethodPost, "tasks/register", req, &resp)
	return resp, err
}

// CompleteTask marks a task done; the server credits XP and coins.
func (c *Client) CompleteTask(ctx context.Context, taskID int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("tasks/%d/complete", taskID), nil, nil)
}

// BlockTask toggles a task between blocked and pending.
func (c *Client) BlockTask(ctx context.Context, taskID int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("tasks/%d/block", taskID), nil, nil)
}

func (c *Client) DeleteTask(ctx context.Context, taskID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("tasks/%d", taskID), nil, nil)
}

// --- skills ---

func (c *Client) ListSkillsByUser(ctx context.Context, userID int64) ([]domain.Skill, error) {
	var resp []domain.Skill
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("skills/user/%d", userID), nil, &resp)
	return resp, err
}

func (c *Client) CreateSkill(ctx context.Context, req domain.SkillCreateRequest) (domain.Skill, error) {
	var resp domain.Skill
	err := c.do(ctx, http.MethodPost, "skills/register", req, &resp)
	return resp, err
}

// --- rewards ---

func (c *Client) ListRewardsByUser(ctx context.Context, userID int64) ([]domain.Reward, error) {
	var resp []domain.Reward
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("rewards/user/%d", userID), nil, &resp)
	return resp, err
}

// CreateReward submits a reward; the server derives the price from the
// 1-5 like level.
func (c *Client) CreateReward(ctx context.Context, req domain.RewardCreateRequest) (domain.Reward, error) {
	var resp domain.Reward
	err := c.do(ctx, http.MethodPost, "rewards/register", req, &resp)
	return resp, err
}

// BuyReward claims a reward, debiting its price server-side.
func (c *Client) BuyReward(ctx context.Context, rewardID int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("store/buy/reward/%d", rewardID), nil, nil)
}

// --- store ---

// ListAvatars returns the global cosmetic catalog with per-user owned flags.
func (c *Client) ListAvatars(ctx context.Context) ([]domain.Avatar, error) {
	var resp []domain.Avatar
	err := c.do(ctx, http.MethodGet, "store/avatars", nil, &resp)
	return resp, err
}

func (c *Client) BuyAvatar(ctx context.Context, avatarID int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("store/buy/avatar/%d", avatarID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Tokens != nil {
		if token, ok := c.Tokens.BearerToken(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
