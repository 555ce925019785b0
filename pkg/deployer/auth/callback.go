package auth

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// ErrAlreadyHandled is returned to a second callback request.
var ErrAlreadyHandled = errors.New("callback already handled")

const (
	closeTabSuccess = "GitHub authentication successful! You can close this tab."
	closeTabFailure = "GitHub authentication failed. Check the terminal, then close this tab."
)

var closeTabPage = template.Must(template.New("close").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>deployer</title></head>
<body>
<p>{{ .Message }}</p>
<script>window.close();</script>
</body>
</html>
`))

type CallbackConfig struct {
	// Address is the listen address, e.g. 127.0.0.1:3000.
	Address string
	// Path of the redirect route, e.g. /github/callback.
	Path  string
	OAuth oauth2.Config
	// HTTPClient is used for the code exchange when set.
	HTTPClient *http.Client
}

type CallbackResult struct {
	Token VerifiedToken
}

type callbackOutcome struct {
	result *CallbackResult
	err    error
}

// CallbackServer receives exactly one OAuth redirect, exchanges its code and
// resolves the GitHub identity. Wait returns only after the close-tab page
// has been written to the browser.
type CallbackServer struct {
	cfg      CallbackConfig
	verifier Verifier
	logger   *zap.Logger
	state    string

	listener net.Listener
	server   *http.Server
	handled  atomic.Bool
	outcome  chan callbackOutcome
}

func NewCallbackServer(cfg CallbackConfig, verifier Verifier, logger *zap.Logger) (*CallbackServer, error) {
	if cfg.OAuth.ClientID == "" {
		return nil, errors.New("github client id is required")
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	return &CallbackServer{
		cfg:      cfg,
		verifier: verifier,
		logger:   logOrNop(logger),
		state:    uuid.NewString(),
		outcome:  make(chan callbackOutcome, 1),
	}, nil
}

// Start binds the listener and serves in the background.
func (s *CallbackServer) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to start callback listener on %s: %w", s.cfg.Address, err)
	}
	s.listener = listener
	if s.cfg.OAuth.RedirectURL == "" {
		s.cfg.OAuth.RedirectURL = fmt.Sprintf("http://%s%s", listener.Addr().String(), s.cfg.Path)
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("callback server stopped", zap.Error(err))
		}
	}()
	s.logger.Debug("callback server listening", zap.String("address", listener.Addr().String()))
	return nil
}

// Addr is the bound address, valid after Start.
func (s *CallbackServer) Addr() string {
	if s.listener == nil {
		return s.cfg.Address
	}
	return s.listener.Addr().String()
}

func (s *CallbackServer) AuthCodeURL() string {
	return s.cfg.OAuth.AuthCodeURL(s.state)
}

func (s *CallbackServer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != s.cfg.Path {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Query().Get("state") != s.state {
			s.logger.Warn("callback with unexpected state ignored")
			http.Error(w, "invalid state", http.StatusBadRequest)
			return
		}
		if !s.handled.CompareAndSwap(false, true) {
			http.Error(w, ErrAlreadyHandled.Error(), http.StatusConflict)
			return
		}

		result, err := s.complete(r)
		message := closeTabSuccess
		status := http.StatusOK
		if err != nil {
			message = closeTabFailure
			status = http.StatusBadGateway
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if execErr := closeTabPage.Execute(w, struct{ Message string }{message}); execErr != nil {
			s.logger.Debug("failed to write close-tab page", zap.Error(execErr))
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		s.outcome <- callbackOutcome{result: result, err: err}
	})
}

func (s *CallbackServer) complete(r *http.Request) (*CallbackResult, error) {
	query := r.URL.Query()
	if denied := query.Get("error"); denied != "" {
		return nil, fmt.Errorf("github denied authorization: %s %s", denied, query.Get("error_description"))
	}
	code := query.Get("code")
	if code == "" {
		return nil, errors.New("missing code in callback")
	}

	ctx := r.Context()
	if s.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.cfg.HTTPClient)
	}
	token, err := s.cfg.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	verified, ok := Check(ctx, s.verifier, token.AccessToken)
	if !ok {
		return nil, errors.New("github rejected the exchanged token")
	}
	return &CallbackResult{Token: verified}, nil
}

// Wait blocks until the callback has been handled or ctx ends.
func (s *CallbackServer) Wait(ctx context.Context) (*CallbackResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-s.outcome:
		return out.result, out.err
	}
}

func (s *CallbackServer) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
