package dashboard

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net"

	"github.com/deployer-cli/deployer/pkg/api"
	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/deployer/browser"
	"github.com/deployer-cli/deployer/pkg/deployer/output"
	"github.com/deployer-cli/deployer/pkg/ratelimit"
	"github.com/gin-contrib/static"
	"go.uber.org/zap"
)

//go:embed public
var public embed.FS

// Assets returns the embedded page, script and stylesheet.
func Assets() fs.FS {
	sub, err := fs.Sub(public, "public")
	if err != nil {
		panic(err)
	}
	return sub
}

type Dashboard struct {
	GitHub   RepositoryLister
	Vercel   ProjectLister
	Owner    string
	SiteURL  func(project string) string
	Recorder *audit.Recorder
	Opener   browser.Opener
	Out      io.Writer
	Logger   *zap.Logger

	Debug     bool
	StaticDir string
	RateLimit ratelimit.Config
}

func (d *Dashboard) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Dashboard) assets() static.ServeFileSystem {
	if d.StaticDir != "" {
		return api.Dir(d.StaticDir)
	}
	return api.FS(Assets())
}

// Server builds the gin server with both controllers registered.
func (d *Dashboard) Server() (*api.Server, error) {
	log := d.logger()
	srv := api.NewServer(log, api.Options{
		Debug:     d.Debug,
		Static:    d.assets(),
		RateLimit: d.RateLimit,
	})
	controllers := []api.APIController{
		&RepositoryController{GitHub: d.GitHub, Owner: d.Owner, Recorder: d.Recorder, Logger: log.Sugar()},
		&ProjectController{Vercel: d.Vercel, SiteURL: d.SiteURL, Recorder: d.Recorder, Logger: log.Sugar()},
	}
	if err := srv.RegisterAll(controllers); err != nil {
		srv.Close()
		return nil, err
	}
	return srv, nil
}

// Run serves on addr until ctx is done. Once listening it announces the URL
// and opens it in the browser.
func (d *Dashboard) Run(ctx context.Context, addr string) error {
	srv, err := d.Server()
	if err != nil {
		return err
	}
	defer srv.Close()

	return srv.ListenAndServe(ctx, addr, func(bound net.Addr) {
		url := "http://" + displayAddr(bound)
		if d.Out != nil {
			output.Box(d.Out, fmt.Sprintf("Server is running on %s", url))
		}
		if d.Opener != nil {
			if err := d.Opener.Open(ctx, url); err != nil {
				d.logger().Sugar().Warnw("Failed to open browser", "url", url, "error", err)
			}
		}
		if d.Out != nil {
			output.Banner(d.Out, "✔ Server is up and running!")
		}
	})
}

func displayAddr(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}
	if tcp.IP == nil || tcp.IP.IsUnspecified() || tcp.IP.IsLoopback() {
		return fmt.Sprintf("localhost:%d", tcp.Port)
	}
	return addr.String()
}
