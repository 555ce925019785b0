package gitops

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	args       string
	readmeSeen bool
}

// recordingRunner notes each git invocation and whether README.md existed
// at that moment.
type recordingRunner struct {
	dir   string
	calls []call
	fail  map[string]error
}

func (r *recordingRunner) Run(_ context.Context, dir string, args ...string) (string, error) {
	_, err := os.Stat(filepath.Join(dir, "README.md"))
	joined := strings.Join(args, " ")
	r.calls = append(r.calls, call{args: joined, readmeSeen: err == nil})
	if e, ok := r.fail[joined]; ok {
		return "", e
	}
	return "", nil
}

func (r *recordingRunner) argList() []string {
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.args)
	}
	return out
}

func TestInitialPushSequence(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{dir: dir}
	var steps []string

	err := InitialPush(context.Background(), runner, InitialPushOptions{
		Dir:       dir,
		RemoteURL: "https://github.com/alice/site.git",
		Readme:    []byte("# site\nThis is the repository for site."),
		Progress:  func(s string) { steps = append(steps, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"init",
		"remote add origin https://github.com/alice/site.git",
		"fetch origin",
		"branch -M main",
		"pull origin main --allow-unrelated-histories",
		"add .",
		"commit --allow-empty -m Initial commit",
		"push -u origin main",
	}, runner.argList())

	byArgs := map[string]bool{}
	for _, c := range runner.calls {
		byArgs[c.args] = c.readmeSeen
	}
	assert.True(t, byArgs["init"])
	assert.False(t, byArgs["pull origin main --allow-unrelated-histories"], "README is removed before pulling")
	assert.True(t, byArgs["add ."])

	content, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "# site\nThis is the repository for site.", string(content))
	assert.Equal(t, "Pushed to GitHub", steps[len(steps)-1])
	assert.Len(t, steps, 7)
}

func TestInitialPushReusesExistingRemote(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{dir: dir, fail: map[string]error{
		"remote add origin https://example.com/r.git": errors.New("remote origin already exists"),
	}}
	err := InitialPush(context.Background(), runner, InitialPushOptions{Dir: dir, RemoteURL: "https://example.com/r.git"})
	require.NoError(t, err)
	assert.Contains(t, runner.argList(), "remote set-url origin https://example.com/r.git")
}

func TestInitialPushStopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{dir: dir, fail: map[string]error{
		"fetch origin": &CommandError{Args: []string{"fetch", "origin"}, Output: "could not read from remote", Err: errors.New("exit status 128")},
	}}
	err := InitialPush(context.Background(), runner, InitialPushOptions{Dir: dir, RemoteURL: "https://example.com/r.git", Branch: "trunk"})
	require.Error(t, err)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, err.Error(), "git fetch origin")
	assert.Contains(t, err.Error(), "could not read from remote")
	assert.NotContains(t, runner.argList(), "push -u origin trunk")
}

func TestInitialPushRequiresRemote(t *testing.T) {
	err := InitialPush(context.Background(), &recordingRunner{}, InitialPushOptions{})
	require.Error(t, err)
}

func TestExecRunnerReportsMissingBinary(t *testing.T) {
	_, err := ExecRunner{Binary: "definitely-not-a-git-binary"}.Run(context.Background(), t.TempDir(), "status")
	require.Error(t, err)
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
}
