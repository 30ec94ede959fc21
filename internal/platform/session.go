// Package platform is the client for the external trading platform: session
// login with TOTP two-factor auth and the websocket market data feed. The
// platform owns order execution and portfolio accounting; this engine only
// authenticates, consumes bars, and publishes intents.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"
)

const (
	defaultTimeout = 7 * time.Second

	routeLogin  = "/auth/v1/login"
	routeRenew  = "/auth/v1/renewTokens"
	routeLogout = "/auth/v1/logout"
)

// SessionConfig holds platform API credentials.
type SessionConfig struct {
	BaseURL    string
	APIKey     string
	ClientID   string
	Password   string
	TOTPSecret string // base32 secret, codes generated locally at login time

	Timeout time.Duration // default: 7s
}

// Session manages authentication against the platform API. Tokens are held
// in memory only; a restart performs a fresh TOTP login.
type Session struct {
	cfg        SessionConfig
	httpClient *http.Client

	accessToken  string
	refreshToken string
	feedToken    string

	// SessionExpiryHook, if set, is called when the platform rejects a
	// request with an expired-token error.
	SessionExpiryHook func()
}

// NewSession creates a platform session client. Login must be called before
// the tokens are usable.
func NewSession(cfg SessionConfig) *Session {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Session{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login generates a fresh TOTP code and exchanges credentials for session
// tokens.
func (s *Session) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(s.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("totp generate: %w", err)
	}

	resp, err := s.post(ctx, routeLogin, map[string]string{
		"client_id": s.cfg.ClientID,
		"password":  s.cfg.Password,
		"totp":      code,
	})
	if err != nil {
		return fmt.Errorf("platform login: %w", err)
	}

	s.accessToken = resp.Data.AccessToken
	s.refreshToken = resp.Data.RefreshToken
	s.feedToken = resp.Data.FeedToken

	log.Printf("[platform] session established for %s", s.cfg.ClientID)
	return nil
}

// Renew exchanges the refresh token for a new access token without a full
// TOTP login.
func (s *Session) Renew(ctx context.Context) error {
	resp, err := s.post(ctx, routeRenew, map[string]string{
		"refresh_token": s.refreshToken,
	})
	if err != nil {
		return fmt.Errorf("platform renew: %w", err)
	}

	s.accessToken = resp.Data.AccessToken
	if resp.Data.RefreshToken != "" {
		s.refreshToken = resp.Data.RefreshToken
	}
	if resp.Data.FeedToken != "" {
		s.feedToken = resp.Data.FeedToken
	}
	return nil
}

// Logout invalidates the session on the platform side.
func (s *Session) Logout(ctx context.Context) error {
	_, err := s.post(ctx, routeLogout, map[string]string{
		"client_id": s.cfg.ClientID,
	})
	if err != nil {
		return fmt.Errorf("platform logout: %w", err)
	}
	s.accessToken = ""
	s.refreshToken = ""
	s.feedToken = ""
	return nil
}

// AccessToken returns the current API access token.
func (s *Session) AccessToken() string { return s.accessToken }

// FeedToken returns the websocket feed token.
func (s *Session) FeedToken() string { return s.feedToken }

type apiResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		FeedToken    string `json:"feed_token"`
	} `json:"data"`
}

func (s *Session) post(ctx context.Context, route string, params map[string]string) (*apiResponse, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+route, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", s.cfg.APIKey)
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}

	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode == http.StatusForbidden && s.SessionExpiryHook != nil {
		s.SessionExpiryHook()
	}

	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode response (%d): %w", httpResp.StatusCode, err)
	}
	if !resp.Status {
		return &resp, fmt.Errorf("platform error (%d): %s", httpResp.StatusCode, resp.Message)
	}
	return &resp, nil
}
