package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"net/textproto"
	"os"
	"strings"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/util"
)

// SendMailFunc matches smtp.SendMail; injected for tests.
type SendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailOpts holds configuration options for the SMTP adapter.
type EmailOpts struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SendMail SendMailFunc
}

// EmailOption defines a configuration option for the SMTP adapter.
type EmailOption func(*EmailOpts)

func WithSMTPHost(host string) EmailOption {
	return func(o *EmailOpts) { o.Host = host }
}

func WithSMTPPort(port int) EmailOption {
	return func(o *EmailOpts) { o.Port = port }
}

func WithSMTPCredentials(username, password string) EmailOption {
	return func(o *EmailOpts) {
		o.Username = username
		o.Password = password
	}
}

func WithSMTPFrom(from string) EmailOption {
	return func(o *EmailOpts) { o.From = from }
}

func WithSendMailFunc(fn SendMailFunc) EmailOption {
	return func(o *EmailOpts) { o.SendMail = fn }
}

// EmailAdapter delivers notifications over SMTP. Bodies are plain text; the
// subject is RFC 2047 encoded so Arabic titles survive the transport.
type EmailAdapter struct {
	host     string
	port     int
	auth     smtp.Auth
	from     string
	sendMail SendMailFunc
}

var _ Adapter = (*EmailAdapter)(nil)

// NewEmailAdapter builds the adapter. Falls back to SMTP_HOST, SMTP_PORT,
// SMTP_USERNAME, SMTP_PASSWORD and SMTP_FROM environment variables; errors
// when host or sender address is missing.
func NewEmailAdapter(opts ...EmailOption) (*EmailAdapter, error) {
	var cfg EmailOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Host == "" {
		cfg.Host = os.Getenv("SMTP_HOST")
	}
	if cfg.Port == 0 {
		cfg.Port = util.ParseIntEnv("SMTP_PORT", 587)
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("SMTP_USERNAME")
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("SMTP_PASSWORD")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("SMTP_FROM")
	}
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("SMTP host and from address must be provided")
	}
	if cfg.SendMail == nil {
		cfg.SendMail = smtp.SendMail
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &EmailAdapter{
		host:     cfg.Host,
		port:     cfg.Port,
		auth:     auth,
		from:     cfg.From,
		sendMail: cfg.SendMail,
	}, nil
}

func (a *EmailAdapter) Name() models.ProviderName {
	return models.ProviderEmail
}

// Send delivers one message to an email address. smtp.SendMail has no context
// or IO deadline, so the send runs in a goroutine and Send returns a retriable
// failure when the context expires first; a send stuck on a hung SMTP server
// is abandoned rather than allowed to stall the delivery worker.
func (a *EmailAdapter) Send(ctx context.Context, identity, title, body string, data map[string]string) (models.SendResult, error) {
	if identity == "" {
		err := models.NewProviderError(models.ProviderEmail, false, "empty recipient address")
		return models.SendResult{Err: err.Message}, err
	}
	if err := ctx.Err(); err != nil {
		perr := models.NewProviderError(models.ProviderEmail, true, "context cancelled: %v", err)
		return models.SendResult{Err: perr.Message}, perr
	}

	msg := buildEmailMessage(a.from, identity, title, body)
	addr := fmt.Sprintf("%s:%d", a.host, a.port)

	done := make(chan error, 1)
	go func() {
		done <- a.sendMail(addr, a.auth, a.from, []string{identity}, msg)
	}()

	select {
	case <-ctx.Done():
		perr := models.NewProviderError(models.ProviderEmail, true, "send timed out: %v", ctx.Err())
		return models.SendResult{Err: perr.Message}, perr
	case err := <-done:
		if err != nil {
			perr := classifySMTPError(err)
			return models.SendResult{Err: perr.Message}, perr
		}
	}

	slog.Debug("EmailAdapter.Send: delivered", "to", identity)
	return models.SendResult{Success: true}, nil
}

// classifySMTPError maps SMTP reply codes to the failure taxonomy: permanent
// 5xx rejections never succeed on retry, everything else might.
func classifySMTPError(err error) *models.ProviderError {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code >= 500 {
		return models.NewProviderError(models.ProviderEmail, false, "permanent rejection: %v", err)
	}
	return models.NewProviderError(models.ProviderEmail, true, "send failed: %v", err)
}

// buildEmailMessage assembles an RFC 5322 message with UTF-8 subject and body.
func buildEmailMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.BEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	b.WriteString("\r\n")
	b.WriteString(base64.StdEncoding.EncodeToString([]byte(body)))
	b.WriteString("\r\n")
	return []byte(b.String())
}
