package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCommander struct {
	started []string
	ran     []string
	err     error
}

func (r *recordingCommander) Start(_ context.Context, name string, args ...string) error {
	r.started = append(r.started, strings.Join(append([]string{name}, args...), " "))
	return r.err
}

func (r *recordingCommander) Run(_ context.Context, name string, args ...string) error {
	r.ran = append(r.ran, strings.Join(append([]string{name}, args...), " "))
	return r.err
}

func TestOpen(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "open https://vercel.com/account/tokens"},
		{"windows", "rundll32 url.dll,FileProtocolHandler https://vercel.com/account/tokens"},
		{"linux", "xdg-open https://vercel.com/account/tokens"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			rec := &recordingCommander{}
			s := &System{GOOS: tt.goos, Cmd: rec}
			require.NoError(t, s.Open(context.Background(), "https://vercel.com/account/tokens"))
			assert.Equal(t, []string{tt.want}, rec.started)
		})
	}
}

func TestOpenRequiresURL(t *testing.T) {
	s := &System{GOOS: "linux", Cmd: &recordingCommander{}}
	require.Error(t, s.Open(context.Background(), ""))
}

func TestKill(t *testing.T) {
	tests := []struct {
		goos    string
		process string
		want    []string
	}{
		{"windows", "chrome", []string{"taskkill /IM chrome.exe /F"}},
		{"windows", "msedge.exe", []string{"taskkill /IM msedge.exe /F"}},
		{"darwin", "chrome", []string{"pkill -x Google Chrome"}},
		{"linux", "chrome", []string{"pkill -f chrome"}},
		{"linux", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.process, func(t *testing.T) {
			rec := &recordingCommander{}
			s := &System{GOOS: tt.goos, Process: tt.process, Cmd: rec}
			require.NoError(t, s.Kill(context.Background()))
			assert.Equal(t, tt.want, rec.ran)
		})
	}
}

func TestKillPropagatesError(t *testing.T) {
	rec := &recordingCommander{err: errors.New("no process found")}
	s := &System{GOOS: "linux", Process: "chrome", Cmd: rec}
	require.Error(t, s.Kill(context.Background()))
}

func TestNewUsesRuntime(t *testing.T) {
	s := New("chrome")
	assert.NotEmpty(t, s.GOOS)
	assert.Equal(t, "chrome", s.Process)
	assert.IsType(t, ExecCommander{}, s.Cmd)
}
