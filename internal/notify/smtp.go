package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"jobscan-engine/internal/config"
)

// SMTPDeliverer sends rendered alerts over SMTP. Port 465 gets implicit
// TLS; other ports start plain and upgrade with STARTTLS when UseTLS is
// set. Auth only happens when credentials are present.
type SMTPDeliverer struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool

	From string
	To   []string

	DialTimeout time.Duration
	Log         *slog.Logger
}

// NewSMTPDeliverer wires the deliverer from the email config plus the
// separately resolved password.
func NewSMTPDeliverer(cfg config.Email, password string, log *slog.Logger) *SMTPDeliverer {
	if log == nil {
		log = slog.Default()
	}
	return &SMTPDeliverer{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		Username:    cfg.Username,
		Password:    password,
		UseTLS:      cfg.UseTLS,
		From:        cfg.From,
		To:          parseRecipients(cfg.To),
		DialTimeout: 15 * time.Second,
		Log:         log.With("component", "smtp"),
	}
}

// parseRecipients splits a comma-separated recipient list.
func parseRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (d *SMTPDeliverer) Deliver(ctx context.Context, email Email) error {
	if len(d.To) == 0 {
		return fmt.Errorf("smtp: no recipients configured")
	}

	addr := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))
	d.Log.Debug("connecting", "addr", addr, "implicit_tls", d.Port == 465)

	client, err := d.connect(ctx, addr)
	if err != nil {
		return fmt.Errorf("smtp connect %s: %w", addr, err)
	}
	defer client.Quit()

	if d.Port != 465 && d.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: d.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if d.Username != "" && d.Password != "" {
		auth := smtp.PlainAuth("", d.Username, d.Password, d.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(d.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range d.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(buildMessage(d.From, d.To, email)); err != nil {
		w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish body: %w", err)
	}

	d.Log.Debug("message delivered", "to", strings.Join(d.To, ", "))
	return nil
}

func (d *SMTPDeliverer) connect(ctx context.Context, addr string) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: d.DialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	if d.Port == 465 {
		tlsConn := tls.Client(conn, &tls.Config{ServerName: d.Host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

// buildMessage assembles a multipart/alternative MIME message with the
// plain part first so dumb clients show text.
func buildMessage(from string, to []string, email Email) []byte {
	const boundary = "=_jobscan_alt_boundary"

	var b strings.Builder
	write := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\r\n", args...)
	}

	write("From: %s", from)
	write("To: %s", strings.Join(to, ", "))
	write("Subject: %s", mime.QEncoding.Encode("utf-8", email.Subject))
	write("Date: %s", time.Now().UTC().Format(time.RFC1123Z))
	write("MIME-Version: 1.0")
	write("Content-Type: multipart/alternative; boundary=%q", boundary)
	write("")

	part := func(contentType, body string) {
		write("--%s", boundary)
		write("Content-Type: %s; charset=utf-8", contentType)
		write("Content-Transfer-Encoding: 8bit")
		write("")
		write("%s", strings.ReplaceAll(body, "\n", "\r\n"))
	}
	part("text/plain", email.TextBody)
	part("text/html", email.HTMLBody)
	write("--%s--", boundary)

	return []byte(b.String())
}
