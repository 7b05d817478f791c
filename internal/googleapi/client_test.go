package googleapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/logging"
)

func testClient(t *testing.T, tokenURL, quotaURL, loadURL string) *Client {
	t.Helper()
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	return NewClient(5*time.Second, log, WithEndpoints(tokenURL, quotaURL, loadURL))
}

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, ClientID, r.FormValue("client_id"))
		assert.Equal(t, ClientSecret, r.FormValue("client_secret"))
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "1//rt", r.FormValue("refresh_token"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "ya29.new", "expires_in": 3599})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, "", "")
	result, err := c.RefreshToken(context.Background(), "1//rt")
	require.NoError(t, err)
	assert.Equal(t, "ya29.new", result.AccessToken)
	assert.Equal(t, int64(3599), result.ExpiresIn)
	assert.Empty(t, result.RefreshToken)
}

func TestRefreshTokenServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, "", "")
	_, err := c.RefreshToken(context.Background(), "1//revoked")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRefreshExchangeFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestRefreshTokenEmptyRefreshToken(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:0", "", "")
	_, err := c.RefreshToken(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrMissingCredential)
}

func TestRefreshTokenNoAccessTokenInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"expires_in": 3599})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, "", "")
	_, err := c.RefreshToken(context.Background(), "1//rt")
	assert.ErrorIs(t, err, common.ErrRefreshExchangeFailed)
}

func TestFetchLiveQuota(t *testing.T) {
	load := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ya29.at", r.Header.Get("Authorization"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		json.NewEncoder(w).Encode(map[string]any{"cloudaicompanionProject": "projects/p1"})
	}))
	defer load.Close()

	quota := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "projects/p1", body["project"])
		json.NewEncoder(w).Encode(map[string]any{
			"models": map[string]any{
				"gemini-3-pro": map[string]any{
					"quotaInfo": map[string]any{"remainingFraction": 0.876, "resetTime": "2026-08-31T00:00:00Z"},
				},
				"no-quota-model": map[string]any{},
			},
		})
	}))
	defer quota.Close()

	c := testClient(t, "", quota.URL, load.URL)
	q, err := c.FetchLiveQuota(context.Background(), "ya29.at")
	require.NoError(t, err)
	require.Contains(t, q.Models, "gemini-3-pro")
	assert.Equal(t, 87, q.Models["gemini-3-pro"].Percentage)
	assert.Equal(t, "2026-08-31T00:00:00Z", q.Models["gemini-3-pro"].ResetTime)
	assert.NotContains(t, q.Models, "no-quota-model")
}

func TestFetchLiveQuotaProjectLookupFailureIsTolerated(t *testing.T) {
	load := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer load.Close()

	quota := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "project")
		json.NewEncoder(w).Encode(map[string]any{"models": map[string]any{}})
	}))
	defer quota.Close()

	c := testClient(t, "", quota.URL, load.URL)
	q, err := c.FetchLiveQuota(context.Background(), "ya29.at")
	require.NoError(t, err)
	assert.Empty(t, q.Models)
}

func TestFetchLiveQuotaServerError(t *testing.T) {
	quota := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer quota.Close()

	load := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer load.Close()

	c := testClient(t, "", quota.URL, load.URL)
	_, err := c.FetchLiveQuota(context.Background(), "ya29.expired")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
