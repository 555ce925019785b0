package mail

import (
	"crypto/tls"
	"errors"
	"math"
	"time"

	"github.com/deployer-cli/deployer/pkg/metrics"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Config describes the SMTP relay used for notifications.
type Config struct {
	Host               string   `yaml:"host,omitempty"`
	Port               int      `yaml:"port,omitempty"`
	User               string   `yaml:"user,omitempty"`
	Password           string   `yaml:"password,omitempty"`
	PasswordEnv        string   `yaml:"password-env,omitempty"`
	SenderAddress      string   `yaml:"sender-address,omitempty"`
	SenderName         string   `yaml:"sender-name,omitempty"`
	Recipients         []string `yaml:"recipients,omitempty"`
	InsecureSkipVerify bool     `yaml:"insecure-skip-verify,omitempty"`
	RetryCount         int      `yaml:"retry-count,omitempty"`
	RetryBackoffMs     int      `yaml:"retry-backoff-ms,omitempty"`
}

// Enabled reports whether notifications are configured.
func (c Config) Enabled() bool {
	return c.Host != "" && len(c.Recipients) > 0
}

type Sender interface {
	Send(receivers []string, subject, body string) error
	GetHost() string
	GetPort() int
}

type sender struct {
	dialer         *gomail.Dialer
	senderAddress  string
	senderName     string
	retryCount     int
	retryBackoffMs int
	logger         *zap.SugaredLogger
}

// NewSender creates an SMTP sender. password is passed separately so callers
// can resolve it from PasswordEnv.
func NewSender(cfg Config, password string, logger *zap.SugaredLogger) (Sender, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	d := gomail.NewDialer(cfg.Host, port, cfg.User, password)
	if cfg.InsecureSkipVerify {
		logger.Warnw("InsecureSkipVerify is enabled for mail TLS connection", "host", cfg.Host)
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for internal relays
	}

	senderAddr := cfg.SenderAddress
	if senderAddr == "" {
		senderAddr = "noreply@localhost"
	}
	senderName := cfg.SenderName
	if senderName == "" {
		senderName = "Deployer"
	}
	retryCount := cfg.RetryCount
	if retryCount <= 0 {
		retryCount = 3
	}
	retryBackoffMs := cfg.RetryBackoffMs
	if retryBackoffMs <= 0 {
		retryBackoffMs = 100
	}

	return &sender{
		dialer:         d,
		senderAddress:  senderAddr,
		senderName:     senderName,
		retryCount:     retryCount,
		retryBackoffMs: retryBackoffMs,
		logger:         logger.Named("mail"),
	}, nil
}

func (s *sender) Send(receivers []string, subject, body string) error {
	if len(receivers) == 0 {
		return errors.New("no receivers")
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.senderAddress, s.senderName)
	msg.SetHeader("To", receivers...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	var lastErr error
	backoffMs := s.retryBackoffMs

	for attempt := 0; attempt <= s.retryCount; attempt++ {
		err := s.dialer.DialAndSend(msg)
		if err == nil {
			s.logger.Debugw("mail sent", "receivers", len(receivers), "attempt", attempt+1)
			metrics.MailSendSuccess.WithLabelValues(s.GetHost()).Inc()
			return nil
		}

		lastErr = err
		if attempt < s.retryCount {
			s.logger.Debugw("mail send failed, retrying", "attempt", attempt+1, "backoffMs", backoffMs, "error", err)
			time.Sleep(time.Duration(backoffMs) * time.Millisecond)
			backoffMs = int(math.Min(float64(backoffMs)*2, 32000))
		}
	}

	s.logger.Warnw("mail not sent", "attempts", s.retryCount+1, "error", lastErr)
	metrics.MailSendFailure.WithLabelValues(s.GetHost()).Inc()
	return lastErr
}

func (s *sender) GetHost() string {
	return s.dialer.Host
}

func (s *sender) GetPort() int {
	return s.dialer.Port
}
