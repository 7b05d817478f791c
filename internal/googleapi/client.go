// Package googleapi consumes the external OAuth and quota endpoints. The
// exchanges are opaque request/response contracts: this client reproduces
// them exactly and does no token bookkeeping of its own.
package googleapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/lalds/AntigravityManager/internal/accounts"
	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/logging"
)

// Fixed endpoint constants of the host application's backend.
const (
	ClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	ClientSecret = "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"
	UserAgent    = "antigravity/1.11.3 Darwin/arm64"

	TokenURL       = "https://oauth2.googleapis.com/token"
	QuotaURL       = "https://cloudcode-pa.googleapis.com/v1internal:fetchAvailableModels"
	LoadProjectURL = "https://cloudcode-pa.googleapis.com/v1internal:loadCodeAssist"
)

// RefreshResult is the consumed shape of the token-refresh response.
type RefreshResult struct {
	AccessToken string `json:"access_token"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// RefreshToken is only set when the exchange rotates it.
	RefreshToken string `json:"refresh_token"`
}

// Client talks to the token and quota endpoints.
type Client struct {
	tokenURL string
	quotaURL string
	loadURL  string
	timeout  time.Duration
	log      logging.Logger
}

// Option adjusts a Client. Used by tests to point at local servers.
type Option func(*Client)

// WithEndpoints overrides the fixed endpoint URLs.
func WithEndpoints(tokenURL, quotaURL, loadURL string) Option {
	return func(c *Client) {
		c.tokenURL = tokenURL
		c.quotaURL = quotaURL
		c.loadURL = loadURL
	}
}

// NewClient returns a Client with the given per-request timeout.
func NewClient(timeout time.Duration, log logging.Logger, opts ...Option) *Client {
	c := &Client{
		tokenURL: TokenURL,
		quotaURL: QuotaURL,
		loadURL:  LoadProjectURL,
		timeout:  timeout,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RefreshToken performs the refresh exchange with the stored refresh token.
// Any transport or non-2xx failure is reported as ErrRefreshExchangeFailed.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token: %w", common.ErrMissingCredential)
	}

	form := url.Values{
		"client_id":     {ClientID},
		"client_secret": {ClientSecret},
		"refresh_token": {refreshToken},
		"grant_type":    {"refresh_token"},
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrRefreshExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", common.ErrRefreshExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", common.ErrRefreshExchangeFailed, resp.StatusCode, body)
	}

	var result RefreshResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %s", common.ErrRefreshExchangeFailed, err)
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("%w: response carried no access token", common.ErrRefreshExchangeFailed)
	}
	return &result, nil
}

// FetchProjectID asks the backend for the cloud companion project bound to
// the token. Best-effort: failures yield an empty id, not an error, since
// the quota endpoint works without it.
func (c *Client) FetchProjectID(ctx context.Context, accessToken string) string {
	body := map[string]any{"metadata": map[string]any{"ideType": "ANTIGRAVITY"}}

	var out struct {
		Project string `json:"cloudaicompanionProject"`
	}
	if err := c.postJSON(ctx, accessToken, c.loadURL, body, &out); err != nil {
		c.log.Debug(ctx, "loadCodeAssist lookup failed", "error", err)
		return ""
	}
	return out.Project
}

// FetchLiveQuota fetches remaining model quotas for the token. Percentages
// are floor(remainingFraction*100).
func (c *Client) FetchLiveQuota(ctx context.Context, accessToken string) (*accounts.Quota, error) {
	payload := map[string]any{}
	if project := c.FetchProjectID(ctx, accessToken); project != "" {
		payload["project"] = project
	}

	var raw struct {
		Models map[string]struct {
			QuotaInfo *struct {
				RemainingFraction float64 `json:"remainingFraction"`
				ResetTime         string  `json:"resetTime"`
			} `json:"quotaInfo"`
		} `json:"models"`
	}
	if err := c.postJSON(ctx, accessToken, c.quotaURL, payload, &raw); err != nil {
		return nil, fmt.Errorf("fetch quota: %w", err)
	}

	quota := &accounts.Quota{Models: make(map[string]accounts.ModelQuota)}
	for name, info := range raw.Models {
		if info.QuotaInfo == nil {
			continue
		}
		quota.Models[name] = accounts.ModelQuota{
			Percentage: int(math.Floor(info.QuotaInfo.RemainingFraction * 100)),
			ResetTime:  info.QuotaInfo.ResetTime,
		}
	}
	return quota, nil
}

// postJSON sends an authorized JSON POST and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, accessToken, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
