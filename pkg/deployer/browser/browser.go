// Package browser opens URLs in the user's browser and closes it again once
// a token has been copied.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Commander starts external programs. ExecCommander is the production
// implementation; tests record invocations instead.
type Commander interface {
	Start(ctx context.Context, name string, args ...string) error
	Run(ctx context.Context, name string, args ...string) error
}

type ExecCommander struct{}

// Start launches name detached from ctx so the browser outlives the command.
func (ExecCommander) Start(_ context.Context, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func (ExecCommander) Run(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

type Opener interface {
	Open(ctx context.Context, url string) error
}

type Killer interface {
	Kill(ctx context.Context) error
}

// System opens and kills the browser using the platform's own tools.
type System struct {
	GOOS    string
	Process string
	Cmd     Commander
}

func New(process string) *System {
	return &System{GOOS: runtime.GOOS, Process: process, Cmd: ExecCommander{}}
}

func (s *System) Open(ctx context.Context, url string) error {
	if url == "" {
		return errors.New("url is required")
	}
	switch s.GOOS {
	case "darwin":
		return s.Cmd.Start(ctx, "open", url)
	case "windows":
		return s.Cmd.Start(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return s.Cmd.Start(ctx, "xdg-open", url)
	}
}

// Kill force-closes every process of the configured browser. An empty
// process name disables killing.
func (s *System) Kill(ctx context.Context) error {
	if s.Process == "" {
		return nil
	}
	switch s.GOOS {
	case "windows":
		image := s.Process
		if !strings.HasSuffix(strings.ToLower(image), ".exe") {
			image += ".exe"
		}
		return s.Cmd.Run(ctx, "taskkill", "/IM", image, "/F")
	case "darwin":
		return s.Cmd.Run(ctx, "pkill", "-x", darwinProcess(s.Process))
	default:
		return s.Cmd.Run(ctx, "pkill", "-f", s.Process)
	}
}

func darwinProcess(process string) string {
	switch strings.ToLower(process) {
	case "chrome":
		return "Google Chrome"
	case "firefox":
		return "firefox"
	case "safari":
		return "Safari"
	default:
		return process
	}
}
