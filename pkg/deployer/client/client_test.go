package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{
			name:    "missing server",
			opts:    []Option{},
			wantErr: true,
		},
		{
			name: "github api",
			opts: []Option{WithServer(DefaultGitHubURL), WithToken("ghp_token"), WithProvider("github")},
		},
		{
			name:    "server without scheme",
			opts:    []Option{WithServer("api.vercel.com")},
			wantErr: true,
		},
		{
			name:    "nil http client",
			opts:    []Option{WithServer(DefaultVercelURL), WithHTTPClient(nil)},
			wantErr: true,
		},
		{
			name: "user agent and timeout",
			opts: []Option{WithServer(DefaultVercelURL), WithUserAgent("deployer/dev"), WithTimeout(time.Second)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, client)
			} else {
				require.NoError(t, err)
				require.NotNil(t, client)
			}
		})
	}
}

func TestClientDoSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer ghp_token", r.Header.Get("Authorization"))
		require.Equal(t, "deployer/dev", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GitHubUser{Login: "alice"})
	}))
	defer server.Close()

	c, err := New(WithServer(server.URL), WithToken("ghp_token"), WithUserAgent("deployer/dev"))
	require.NoError(t, err)

	var user GitHubUser
	require.NoError(t, c.do(context.Background(), http.MethodGet, "/user", nil, &user))
	require.Equal(t, "alice", user.Login)
}

func TestClientDoUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	c, err := New(WithServer(server.URL), WithToken("expired"))
	require.NoError(t, err)

	err = c.do(context.Background(), http.MethodGet, "/user", nil, nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	require.Equal(t, "Bad credentials", httpErr.Message)
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{
		StatusCode: http.StatusForbidden,
		Message:    "access denied",
	}
	require.Equal(t, "request failed (403): access denied", err.Error())

	err.Details = []string{"name already exists on this account"}
	require.Equal(t, "request failed (403): access denied: name already exists on this account", err.Error())
}

func TestClientDoKeepsBasePath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/user/repos", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := New(WithServer(server.URL + "/api/v3"))
	require.NoError(t, err)
	require.NoError(t, client.do(context.Background(), http.MethodGet, "user/repos?page=2", nil, nil))
}

func TestDecodeErrorShapes(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
		wantDetails []string
	}{
		{
			name:        "github validation",
			status:      http.StatusUnprocessableEntity,
			body:        `{"message":"Repository creation failed.","errors":[{"resource":"Repository","code":"custom","field":"name","message":"name already exists on this account"}]}`,
			wantMessage: "Repository creation failed.",
			wantDetails: []string{"name already exists on this account"},
		},
		{
			name:        "vercel nested",
			status:      http.StatusForbidden,
			body:        `{"error":{"code":"forbidden","message":"Not authorized"}}`,
			wantMessage: "Not authorized",
			wantCode:    "forbidden",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        `upstream down`,
			wantMessage: "upstream down",
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			wantMessage: "500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := New(WithServer(server.URL))
			require.NoError(t, err)

			err = client.do(context.Background(), http.MethodGet, "x", nil, nil)
			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			require.Equal(t, tt.status, httpErr.StatusCode)
			require.Equal(t, tt.wantMessage, httpErr.Message)
			require.Equal(t, tt.wantCode, httpErr.Code)
			require.Equal(t, tt.wantDetails, httpErr.Details)
			require.True(t, IsStatus(err, tt.status))
		})
	}
}
