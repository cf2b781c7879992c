package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/mahanaatma1/GateKeeper/internal/domain"
)

type Settings struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	TLSMode   string
}

type Message struct {
	ToEmail  string
	Subject  string
	TextBody string
}

// Client sends mail over SMTP. Every send is bounded by Timeout end to end
// (dial through QUIT) so a stalled relay surfaces as domain.ErrTimeout
// rather than blocking the caller's retry policy.
type Client struct {
	Settings Settings
	Timeout  time.Duration
}

const defaultSendTimeout = 30 * time.Second

func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.Settings.Host == "" {
		return fmt.Errorf("smtp not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultSendTimeout
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	addr := fmt.Sprintf("%s:%d", c.Settings.Host, c.Settings.Port)
	client, err := smtpConnect(c.Settings, addr, deadline)
	if err != nil {
		return mapNetErr(err)
	}
	defer client.Close()

	if c.Settings.Username != "" {
		auth := smtp.PlainAuth("", c.Settings.Username, c.Settings.Password, c.Settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(c.Settings.FromEmail); err != nil {
		return mapNetErr(fmt.Errorf("smtp from: %w", err))
	}
	if err := client.Rcpt(msg.ToEmail); err != nil {
		return mapNetErr(fmt.Errorf("smtp rcpt: %w", err))
	}

	writer, err := client.Data()
	if err != nil {
		return mapNetErr(fmt.Errorf("smtp data: %w", err))
	}

	from := c.Settings.FromEmail
	if c.Settings.FromName != "" {
		from = fmt.Sprintf("%s <%s>", c.Settings.FromName, c.Settings.FromEmail)
	}
	body := buildMessage(from, msg.ToEmail, msg.Subject, msg.TextBody)
	if _, err := writer.Write([]byte(body)); err != nil {
		return mapNetErr(fmt.Errorf("smtp write: %w", err))
	}
	if err := writer.Close(); err != nil {
		return mapNetErr(fmt.Errorf("smtp close: %w", err))
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func smtpConnect(settings Settings, addr string, deadline time.Time) (*smtp.Client, error) {
	conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp deadline: %w", err)
	}

	tlsMode := settings.TLSMode
	if tlsMode == "" {
		tlsMode = "starttls"
	}

	tlsConfig := &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}
	if tlsMode == "tls" {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if tlsMode == "starttls" {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	return client, nil
}

func mapNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%v: %w", err, domain.ErrTimeout)
	}
	return err
}

func buildMessage(from, to, subject, body string) string {
	lines := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	return strings.Join(lines, "\r\n")
}
