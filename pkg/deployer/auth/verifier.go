package auth

import (
	"context"
	"strings"

	"github.com/deployer-cli/deployer/pkg/deployer/client"
	"github.com/deployer-cli/deployer/pkg/metrics"
	"go.uber.org/zap"
)

type Identity struct {
	Provider string `json:"provider"`
	Username string `json:"username"`
}

// Verifier checks a bearer token against a provider's "who am I" endpoint.
// Network and authorization failures both report false.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, bool)
}

// VerifiedToken can only be obtained from a successful verification.
type VerifiedToken struct {
	value    string
	identity *Identity
}

func (t VerifiedToken) Value() string       { return t.value }
func (t VerifiedToken) Identity() *Identity { return t.identity }
func (t VerifiedToken) IsZero() bool        { return t.value == "" }

// Check runs v against token and wraps the result.
func Check(ctx context.Context, v Verifier, token string) (VerifiedToken, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return VerifiedToken{}, false
	}
	identity, ok := v.Verify(ctx, token)
	if !ok {
		return VerifiedToken{}, false
	}
	return VerifiedToken{value: token, identity: identity}, true
}

type GitHubVerifier struct {
	Options []client.Option
	Logger  *zap.Logger
}

func (v *GitHubVerifier) Verify(ctx context.Context, token string) (*Identity, bool) {
	gh, err := client.NewGitHub(append(append([]client.Option{}, v.Options...), client.WithToken(token))...)
	if err != nil {
		logOrNop(v.Logger).Warn("github client setup failed", zap.Error(err))
		return nil, countVerification("github", false)
	}
	user, err := gh.CurrentUser(ctx)
	if err != nil {
		logOrNop(v.Logger).Debug("github token rejected", zap.Error(err))
		return nil, countVerification("github", false)
	}
	return &Identity{Provider: "github", Username: user.Login}, countVerification("github", true)
}

type VercelVerifier struct {
	TeamID  string
	Options []client.Option
	Logger  *zap.Logger
}

func (v *VercelVerifier) Verify(ctx context.Context, token string) (*Identity, bool) {
	vc, err := client.NewVercel(v.TeamID, append(append([]client.Option{}, v.Options...), client.WithToken(token))...)
	if err != nil {
		logOrNop(v.Logger).Warn("vercel client setup failed", zap.Error(err))
		return nil, countVerification("vercel", false)
	}
	user, err := vc.CurrentUser(ctx)
	if err != nil {
		logOrNop(v.Logger).Debug("vercel token rejected", zap.Error(err))
		return nil, countVerification("vercel", false)
	}
	return &Identity{Provider: "vercel", Username: user.Username}, countVerification("vercel", true)
}

func countVerification(provider string, ok bool) bool {
	result := "invalid"
	if ok {
		result = "valid"
	}
	metrics.TokenVerifications.WithLabelValues(provider, result).Inc()
	return ok
}

func logOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
