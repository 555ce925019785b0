// Package gitops drives the local git binary to connect a working directory
// to a freshly created GitHub repository and push its first commit.
package gitops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Runner executes one git command in dir.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner runs the git binary found on PATH.
type ExecRunner struct {
	Binary string
	Logger *zap.Logger
}

func (r ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	binary := r.Binary
	if binary == "" {
		binary = "git"
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if r.Logger != nil {
		r.Logger.Debug("git", zap.Strings("args", args), zap.String("dir", dir), zap.Error(err))
	}
	if err != nil {
		return out.String(), &CommandError{Args: args, Output: strings.TrimSpace(out.String()), Err: err}
	}
	return out.String(), nil
}

type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

type InitialPushOptions struct {
	Dir        string
	RemoteURL  string
	Branch     string
	ReadmeName string
	Readme     []byte
	Message    string
	// Progress is called after each completed step.
	Progress func(step string)
}

func (o *InitialPushOptions) defaults() error {
	if o.RemoteURL == "" {
		return errors.New("remote url is required")
	}
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Branch == "" {
		o.Branch = "main"
	}
	if o.ReadmeName == "" {
		o.ReadmeName = "README.md"
	}
	if o.Message == "" {
		o.Message = "Initial commit"
	}
	if o.Progress == nil {
		o.Progress = func(string) {}
	}
	return nil
}

// InitialPush writes the README, initialises the repository, merges the
// remote's first commit and pushes the working tree to the branch.
func InitialPush(ctx context.Context, r Runner, opts InitialPushOptions) error {
	if err := opts.defaults(); err != nil {
		return err
	}
	readme := filepath.Join(opts.Dir, opts.ReadmeName)
	git := func(args ...string) error {
		_, err := r.Run(ctx, opts.Dir, args...)
		return err
	}

	if err := os.WriteFile(readme, opts.Readme, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.ReadmeName, err)
	}
	if err := git("init"); err != nil {
		return err
	}
	opts.Progress("Git initialized")

	if err := git("remote", "add", "origin", opts.RemoteURL); err != nil {
		if setErr := git("remote", "set-url", "origin", opts.RemoteURL); setErr != nil {
			return err
		}
	}
	opts.Progress("Remote origin set")

	if err := git("fetch", "origin"); err != nil {
		return err
	}
	opts.Progress("Fetched origin")

	if err := git("branch", "-M", opts.Branch); err != nil {
		return err
	}
	opts.Progress("Branch set to " + opts.Branch)

	if err := os.Remove(readme); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", opts.ReadmeName, err)
	}
	if err := git("pull", "origin", opts.Branch, "--allow-unrelated-histories"); err != nil {
		return err
	}
	opts.Progress("Pulled origin/" + opts.Branch)

	if err := os.WriteFile(readme, opts.Readme, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.ReadmeName, err)
	}
	if err := git("add", "."); err != nil {
		return err
	}
	if err := git("commit", "--allow-empty", "-m", opts.Message); err != nil {
		return err
	}
	opts.Progress("Committed")

	if err := git("push", "-u", "origin", opts.Branch); err != nil {
		return err
	}
	opts.Progress("Pushed to GitHub")
	return nil
}
