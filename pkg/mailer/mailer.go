// Package mailer delivers generated documents by email. The SMTP
// implementation builds a MIME multipart message with the artifact attached;
// a noop implementation stands in when delivery is disabled, so callers
// never branch on configuration.
package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends a message with an optional file attachment. attachmentPath
// may be empty for plain notifications.
type Mailer interface {
	Send(ctx context.Context, to, subject, body, attachmentPath string) error
}

// Config holds SMTP delivery settings.
type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

type smtpMailer struct {
	cfg    Config
	logger *zap.Logger
}

// NewSMTP creates an SMTP-backed mailer.
func NewSMTP(cfg Config, logger *zap.Logger) Mailer {
	return &smtpMailer{cfg: cfg, logger: logger.Named("mailer")}
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body, attachmentPath string) error {
	msg, err := buildMessage(m.cfg.From, to, subject, body, attachmentPath)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", to, err)
		}
	}

	m.logger.Info("email sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Bool("attachment", attachmentPath != ""))
	return nil
}

const boundary = "docforge-mime-boundary"

// buildMessage assembles an RFC 2045 multipart message with a UTF-8 text
// part and one base64 attachment.
func buildMessage(from, to, subject, body, attachmentPath string) ([]byte, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	sb.WriteString("MIME-Version: 1.0\r\n")

	if attachmentPath == "" {
		sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		sb.WriteString(body)
		sb.WriteString("\r\n")
		return []byte(sb.String()), nil
	}

	data, err := os.ReadFile(attachmentPath)
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", attachmentPath, err)
	}
	filename := filepath.Base(attachmentPath)

	fmt.Fprintf(&sb, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: application/vnd.openxmlformats-officedocument.wordprocessingml.document\r\n")
	sb.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&sb, "Content-Disposition: attachment; filename=\"%s\"\r\n\r\n", mime.BEncoding.Encode("utf-8", filename))

	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		sb.WriteString(encoded[:76])
		sb.WriteString("\r\n")
		encoded = encoded[76:]
	}
	sb.WriteString(encoded)
	sb.WriteString("\r\n")
	fmt.Fprintf(&sb, "--%s--\r\n", boundary)

	return []byte(sb.String()), nil
}

type noopMailer struct {
	logger *zap.Logger
}

// NewNoop creates a mailer that logs instead of sending. Used when email
// delivery is disabled in configuration.
func NewNoop(logger *zap.Logger) Mailer {
	return &noopMailer{logger: logger.Named("mailer")}
}

func (m *noopMailer) Send(ctx context.Context, to, subject, body, attachmentPath string) error {
	m.logger.Debug("email delivery disabled, message dropped",
		zap.String("to", to), zap.String("subject", subject))
	return nil
}
