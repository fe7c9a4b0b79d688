package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// =============================================================================
// Auth Operations (GoTrue)
// =============================================================================

// Auth returns the auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// AuthClient handles authentication operations.
type AuthClient struct {
	client *Client
}

// User represents a Supabase user.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	Role         string         `json:"role,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
}

// Session is a signed-in GoTrue session.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Expired reports whether the access token expires within skew of now.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Add(skew).Unix() >= s.ExpiresAt
}

// SignUpOptions carries profile metadata stored on the new user. The database
// trigger copies full_name, phone and role into profiles and user_roles.
type SignUpOptions struct {
	Data map[string]any `json:"data,omitempty"`
}

// SignUp registers a new email/password user. When email confirmation is on,
// the returned session is nil.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, opts SignUpOptions) (*User, *Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(opts.Data) > 0 {
		body["data"] = opts.Data
	}

	resp, err := a.post(ctx, "/auth/v1/signup", body, "")
	if err != nil {
		return nil, nil, err
	}

	var session Session
	if err := resp.JSON(&session); err != nil {
		return nil, nil, fmt.Errorf("decode signup: %w", err)
	}
	if session.AccessToken != "" {
		session.stamp(time.Now())
		return session.User, &session, nil
	}

	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, nil, fmt.Errorf("decode signup user: %w", err)
	}
	return &user, nil, nil
}

// SignIn exchanges email and password for a session.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return a.token(ctx, "password", map[string]any{
		"email":    email,
		"password": password,
	})
}

// RefreshSession exchanges a refresh token for a new session.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return a.token(ctx, "refresh_token", map[string]any{
		"refresh_token": refreshToken,
	})
}

// GetUser returns the user owning the access token.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.client.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	a.setHeaders(req, accessToken)

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}

	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// SignOut revokes the session behind the access token.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	_, err := a.post(ctx, "/auth/v1/logout", nil, accessToken)
	return err
}

func (a *AuthClient) token(ctx context.Context, grantType string, body map[string]any) (*Session, error) {
	resp, err := a.post(ctx, "/auth/v1/token?grant_type="+grantType, body, "")
	if err != nil {
		return nil, err
	}

	var session Session
	if err := resp.JSON(&session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("auth response missing access token")
	}
	session.stamp(time.Now())
	return &session, nil
}

func (a *AuthClient) post(ctx context.Context, path string, body any, accessToken string) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.client.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	a.setHeaders(req, accessToken)
	req.Header.Set("Content-Type", "application/json")

	return a.client.do(req)
}

func (a *AuthClient) setHeaders(req *http.Request, accessToken string) {
	req.Header.Set("apikey", a.client.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("Accept", "application/json")
}

func (s *Session) stamp(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}
