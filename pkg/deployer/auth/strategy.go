package auth

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	"github.com/deployer-cli/deployer/pkg/deployer/browser"
	"github.com/deployer-cli/deployer/pkg/deployer/prompt"
	"go.uber.org/zap"
)

// SecondaryTokenStrategy obtains a token the operator has to create by hand.
// Acquire returns only a verified token.
type SecondaryTokenStrategy interface {
	Acquire(ctx context.Context) (VerifiedToken, error)
}

// PromptStrategy asks until the verifier accepts the answer. There is no
// retry limit.
type PromptStrategy struct {
	Prompter     prompt.Prompter
	Verifier     Verifier
	Out          io.Writer
	Label        string
	TokenPageURL string
}

func (p *PromptStrategy) Acquire(ctx context.Context) (VerifiedToken, error) {
	label := p.Label
	if label == "" {
		label = "Token"
	}
	for {
		if err := ctx.Err(); err != nil {
			return VerifiedToken{}, err
		}
		value, err := p.Prompter.Secret(label)
		if err != nil {
			return VerifiedToken{}, fmt.Errorf("read %s: %w", label, err)
		}
		if value == "" {
			_, _ = fmt.Fprintln(p.Out, "The token cannot be empty.")
			continue
		}
		if token, ok := Check(ctx, p.Verifier, value); ok {
			return token, nil
		}
		_, _ = fmt.Fprintf(p.Out, "Invalid token, please try again. Click here for a new one: %s\n", p.TokenPageURL)
	}
}

// ClipboardReader is satisfied by SystemClipboard and by test fakes.
type ClipboardReader interface {
	ReadAll() (string, error)
}

type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error) {
	return clipboard.ReadAll()
}

// ClipboardWatchStrategy waits for the clipboard to change, takes that as the
// sign the operator has copied a fresh token, closes the browser and then
// prompts for the value. Any clipboard change triggers it.
type ClipboardWatchStrategy struct {
	Clipboard ClipboardReader
	Interval  time.Duration
	Killer    browser.Killer
	Prompt    *PromptStrategy
	Logger    *zap.Logger
}

func (c *ClipboardWatchStrategy) Acquire(ctx context.Context) (VerifiedToken, error) {
	logger := logOrNop(c.Logger)
	baseline, err := c.Clipboard.ReadAll()
	if err != nil {
		logger.Warn("clipboard unavailable, asking for the token directly", zap.Error(err))
		return c.Prompt.Acquire(ctx)
	}

	interval := c.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return VerifiedToken{}, ctx.Err()
		case <-ticker.C:
			current, err := c.Clipboard.ReadAll()
			if err != nil {
				logger.Debug("clipboard read failed", zap.Error(err))
				continue
			}
			if current == baseline {
				continue
			}
			logger.Debug("clipboard changed, closing browser")
			if c.Killer != nil {
				if err := c.Killer.Kill(ctx); err != nil {
					logger.Warn("failed to close browser", zap.Error(err))
				}
			}
			return c.Prompt.Acquire(ctx)
		}
	}
}
