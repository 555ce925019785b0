package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/deployer-cli/deployer/pkg/audit"
	"github.com/deployer-cli/deployer/pkg/mail"
	"github.com/deployer-cli/deployer/pkg/ratelimit"
	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"
)

// Token storage backends.
const (
	StorageFile     = "file"
	StorageKeychain = "keychain"
)

// Secondary token acquisition strategies.
const (
	StrategyPrompt    = "prompt"
	StrategyClipboard = "clipboard"
)

// Defaults used when the config file leaves a field empty.
const (
	DefaultGitHubAPIURL      = "https://api.github.com"
	DefaultGitHubClientID    = "Ov23ligoamHrg8WSzwAB"
	DefaultClientSecretEnv   = "DEPLOYER_GITHUB_CLIENT_SECRET"
	DefaultCallbackAddress   = "127.0.0.1:3000"
	DefaultCallbackPath      = "/github/callback"
	DefaultBranch            = "main"
	DefaultVercelAPIURL      = "https://api.vercel.com"
	DefaultVercelTokenPage   = "https://vercel.com/account/tokens"
	DefaultURLTemplate       = "https://{{ .DeploymentURL }}"
	DefaultReadmeTemplate    = "# {{ .Name }}\nThis is the repository for {{ .Name }}."
	DefaultDashboardAddress  = "127.0.0.1:3000"
	DefaultBrowserProcess    = "chrome"
	DefaultCountdown         = 10 * time.Second
	DefaultClipboardInterval = time.Second
	DefaultRequestTimeout    = 30 * time.Second
	DefaultSelectLimit       = 20
)

var defaultScopes = []string{"repo", "delete_repo"}

type Config struct {
	Version       string        `yaml:"version"`
	GitHub        GitHub        `yaml:"github,omitempty"`
	Vercel        Vercel        `yaml:"vercel,omitempty"`
	Settings      Settings      `yaml:"settings,omitempty"`
	Dashboard     Dashboard     `yaml:"dashboard,omitempty"`
	Audit         Audit         `yaml:"audit,omitempty"`
	Notifications Notifications `yaml:"notifications,omitempty"`
}

type GitHub struct {
	APIURL           string   `yaml:"api-url,omitempty"`
	AuthURL          string   `yaml:"auth-url,omitempty"`
	TokenURL         string   `yaml:"token-url,omitempty"`
	ClientID         string   `yaml:"client-id,omitempty"`
	ClientSecret     string   `yaml:"client-secret,omitempty"`
	ClientSecretEnv  string   `yaml:"client-secret-env,omitempty"`
	ClientSecretFile string   `yaml:"client-secret-file,omitempty"`
	Scopes           []string `yaml:"scopes,omitempty"`
	CallbackAddress  string   `yaml:"callback-address,omitempty"`
	CallbackPath     string   `yaml:"callback-path,omitempty"`
	DefaultBranch    string   `yaml:"default-branch,omitempty"`
}

type Vercel struct {
	APIURL       string `yaml:"api-url,omitempty"`
	TokenPageURL string `yaml:"token-page-url,omitempty"`
	TeamID       string `yaml:"team-id,omitempty"`
	// Scope is the account slug used by URLTemplate, e.g. "octocats-projects".
	Scope       string `yaml:"scope,omitempty"`
	URLTemplate string `yaml:"url-template,omitempty"`
}

type Settings struct {
	OutputFormat      string        `yaml:"output-format,omitempty"`
	EnvFile           string        `yaml:"env-file,omitempty"`
	TokenStorage      string        `yaml:"token-storage,omitempty"`
	SecondaryStrategy string        `yaml:"secondary-strategy,omitempty"`
	ClipboardInterval time.Duration `yaml:"clipboard-interval,omitempty"`
	BrowserProcess    string        `yaml:"browser-process,omitempty"`
	Countdown         time.Duration `yaml:"countdown,omitempty"`
	RequestTimeout    time.Duration `yaml:"request-timeout,omitempty"`
	ReadmeTemplate    string        `yaml:"readme-template,omitempty"`
	SelectLimit       int           `yaml:"select-limit,omitempty"`
}

type Dashboard struct {
	Address   string           `yaml:"address,omitempty"`
	StaticDir string           `yaml:"static-dir,omitempty"`
	RateLimit ratelimit.Config `yaml:"rate-limit,omitempty"`
}

type Audit struct {
	Sinks []audit.SinkConfig `yaml:"sinks,omitempty"`
}

type Notifications struct {
	Mail mail.Config `yaml:"mail,omitempty"`
}

func DefaultConfig() Config {
	cfg := Config{Version: VersionV1}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every empty field with its default.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = VersionV1
	}
	setDefault(&c.GitHub.APIURL, DefaultGitHubAPIURL)
	setDefault(&c.GitHub.ClientID, DefaultGitHubClientID)
	if c.GitHub.ClientSecret == "" && c.GitHub.ClientSecretFile == "" {
		setDefault(&c.GitHub.ClientSecretEnv, DefaultClientSecretEnv)
	}
	if len(c.GitHub.Scopes) == 0 {
		c.GitHub.Scopes = append([]string(nil), defaultScopes...)
	}
	setDefault(&c.GitHub.CallbackAddress, DefaultCallbackAddress)
	setDefault(&c.GitHub.CallbackPath, DefaultCallbackPath)
	setDefault(&c.GitHub.DefaultBranch, DefaultBranch)

	setDefault(&c.Vercel.APIURL, DefaultVercelAPIURL)
	setDefault(&c.Vercel.TokenPageURL, DefaultVercelTokenPage)
	setDefault(&c.Vercel.URLTemplate, DefaultURLTemplate)

	setDefault(&c.Settings.OutputFormat, "table")
	setDefault(&c.Settings.TokenStorage, StorageFile)
	setDefault(&c.Settings.SecondaryStrategy, StrategyPrompt)
	setDefault(&c.Settings.BrowserProcess, DefaultBrowserProcess)
	setDefault(&c.Settings.ReadmeTemplate, DefaultReadmeTemplate)
	if c.Settings.ClipboardInterval <= 0 {
		c.Settings.ClipboardInterval = DefaultClipboardInterval
	}
	if c.Settings.Countdown < 0 {
		c.Settings.Countdown = 0
	} else if c.Settings.Countdown == 0 {
		c.Settings.Countdown = DefaultCountdown
	}
	if c.Settings.RequestTimeout <= 0 {
		c.Settings.RequestTimeout = DefaultRequestTimeout
	}
	if c.Settings.SelectLimit <= 0 {
		c.Settings.SelectLimit = DefaultSelectLimit
	}

	setDefault(&c.Dashboard.Address, DefaultDashboardAddress)
	c.Dashboard.RateLimit = c.Dashboard.RateLimit.WithDefaults()
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// Load reads the config file at path. A missing file yields DefaultConfig.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("config version missing")
	}
	if c.Version != VersionV1 {
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
	switch c.Settings.TokenStorage {
	case StorageFile, StorageKeychain:
	default:
		return fmt.Errorf("settings.token-storage must be %q or %q", StorageFile, StorageKeychain)
	}
	switch c.Settings.SecondaryStrategy {
	case StrategyPrompt, StrategyClipboard:
	default:
		return fmt.Errorf("settings.secondary-strategy must be %q or %q", StrategyPrompt, StrategyClipboard)
	}
	switch c.Settings.OutputFormat {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("settings.output-format must be table, json or yaml")
	}
	if !strings.HasPrefix(c.GitHub.CallbackPath, "/") {
		return errors.New("github.callback-path must start with /")
	}
	if strings.TrimSpace(c.GitHub.ClientID) == "" {
		return errors.New("github.client-id is required")
	}
	return nil
}

// EnvFilePath returns the configured credential file, or the default one.
func (c *Config) EnvFilePath() string {
	if c.Settings.EnvFile != "" {
		return c.Settings.EnvFile
	}
	return DefaultEnvFilePath()
}

// ResolveClientSecret returns the GitHub OAuth client secret from the first
// configured source: inline value, environment variable, then file.
func (g GitHub) ResolveClientSecret() (string, error) {
	if g.ClientSecret != "" {
		return g.ClientSecret, nil
	}
	if g.ClientSecretEnv != "" {
		value := strings.TrimSpace(os.Getenv(g.ClientSecretEnv))
		if value == "" {
			return "", fmt.Errorf("client secret env var not set: %s", g.ClientSecretEnv)
		}
		return value, nil
	}
	if g.ClientSecretFile != "" {
		data, err := os.ReadFile(g.ClientSecretFile)
		if err != nil {
			return "", fmt.Errorf("failed to read client secret file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return "", errors.New("no github client secret configured")
}

// CallbackURL is the redirect URI registered with the GitHub OAuth app.
func (g GitHub) CallbackURL() string {
	return "http://" + g.CallbackAddress + g.CallbackPath
}

// Keys lists the settings accepted by Set, in display order.
func Keys() []string {
	return []string{
		"github.api-url",
		"github.client-id",
		"github.client-secret-env",
		"github.client-secret-file",
		"github.callback-address",
		"github.callback-path",
		"github.default-branch",
		"vercel.api-url",
		"vercel.team-id",
		"vercel.scope",
		"vercel.url-template",
		"settings.output-format",
		"settings.env-file",
		"settings.token-storage",
		"settings.secondary-strategy",
		"settings.browser-process",
		"settings.countdown",
		"settings.select-limit",
		"dashboard.address",
		"dashboard.static-dir",
	}
}

// Set assigns a single dotted key. The result is validated.
func (c *Config) Set(key, value string) error {
	switch key {
	case "github.api-url":
		c.GitHub.APIURL = value
	case "github.client-id":
		c.GitHub.ClientID = value
	case "github.client-secret-env":
		c.GitHub.ClientSecretEnv = value
	case "github.client-secret-file":
		c.GitHub.ClientSecretFile = value
	case "github.callback-address":
		c.GitHub.CallbackAddress = value
	case "github.callback-path":
		c.GitHub.CallbackPath = value
	case "github.default-branch":
		c.GitHub.DefaultBranch = value
	case "vercel.api-url":
		c.Vercel.APIURL = value
	case "vercel.team-id":
		c.Vercel.TeamID = value
	case "vercel.scope":
		c.Vercel.Scope = value
	case "vercel.url-template":
		c.Vercel.URLTemplate = value
	case "settings.output-format":
		c.Settings.OutputFormat = value
	case "settings.env-file":
		c.Settings.EnvFile = value
	case "settings.token-storage":
		c.Settings.TokenStorage = value
	case "settings.secondary-strategy":
		c.Settings.SecondaryStrategy = value
	case "settings.browser-process":
		c.Settings.BrowserProcess = value
	case "settings.countdown":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("settings.countdown: %w", err)
		}
		c.Settings.Countdown = d
	case "settings.select-limit":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("settings.select-limit must be a positive integer")
		}
		c.Settings.SelectLimit = n
	case "dashboard.address":
		c.Dashboard.Address = value
	case "dashboard.static-dir":
		c.Dashboard.StaticDir = value
	default:
		return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(Keys(), ", "))
	}
	c.ApplyDefaults()
	return c.Validate()
}
