package notify

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/report-dispatcher/internal/config"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// EmailSender delivers report emails
type EmailSender interface {
	Send(ctx context.Context, msg *Email) error
}

// Email is one outbound message
type Email struct {
	To         []string
	Subject    string
	HTMLBody   string
	Attachment *Attachment
}

// Attachment is a file attached to an email
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// SMTPSender implements EmailSender over SMTP
type SMTPSender struct {
	config *config.EmailConfig
	logger *logrus.Logger
	auth   smtp.Auth
}

// NewSMTPSender creates a new SMTP email sender
func NewSMTPSender(cfg *config.EmailConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}

	return &SMTPSender{
		config: cfg,
		logger: utils.GetLogger(),
		auth:   auth,
	}
}

// Send delivers the email to all recipients in one SMTP transaction
func (s *SMTPSender) Send(ctx context.Context, msg *Email) error {
	startTime := time.Now()

	if err := s.validate(msg); err != nil {
		return err
	}

	message := s.buildMessage(msg)

	var err error
	if s.config.UseTLS {
		err = s.sendTLS(msg.To, message)
	} else {
		err = s.sendPlain(msg.To, message)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"to":          strings.Join(msg.To, ", "),
		"subject":     msg.Subject,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	if err != nil {
		entry.WithField("error", err.Error()).Error("Email failed")
		return utils.NewAppError(utils.ErrCodeDelivery, "Failed to send email", err.Error())
	}

	entry.Info("Email sent successfully")
	return nil
}

// sendTLS sends email over an implicit TLS connection
func (s *SMTPSender) sendTLS(to []string, message string) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
	}

	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to connect with TLS: %w", err)
	}
	defer conn.Close()

	if s.config.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(s.config.Timeout))
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return s.submit(client, to, message)
}

// sendPlain sends email without TLS
func (s *SMTPSender) sendPlain(to []string, message string) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	conn, err := net.DialTimeout("tcp", addr, s.config.Timeout)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	if s.config.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(s.config.Timeout))
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return s.submit(client, to, message)
}

// submit runs the SMTP mail transaction on an established client
func (s *SMTPSender) submit(client *smtp.Client, to []string, message string) error {
	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	defer writer.Close()

	if _, err := writer.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// buildMessage builds the full MIME message, multipart when an
// attachment is present
func (s *SMTPSender) buildMessage(msg *Email) string {
	var message strings.Builder

	message.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.FromEmail))
	message.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	message.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	message.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	message.WriteString("MIME-Version: 1.0\r\n")

	if msg.Attachment == nil {
		message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		message.WriteString("\r\n")
		message.WriteString(msg.HTMLBody)
		return message.String()
	}

	const boundary = "report-dispatcher-boundary"

	message.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%s\r\n", boundary))
	message.WriteString("\r\n")

	// HTML body part
	message.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(msg.HTMLBody)
	message.WriteString("\r\n")

	// Attachment part, base64 wrapped at 76 columns
	message.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	message.WriteString(fmt.Sprintf("Content-Type: %s\r\n", msg.Attachment.ContentType))
	message.WriteString("Content-Transfer-Encoding: base64\r\n")
	message.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", msg.Attachment.Filename))
	message.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString(msg.Attachment.Data)
	for len(encoded) > 76 {
		message.WriteString(encoded[:76])
		message.WriteString("\r\n")
		encoded = encoded[76:]
	}
	message.WriteString(encoded)
	message.WriteString("\r\n")

	message.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return message.String()
}

// validate checks recipients and subject
func (s *SMTPSender) validate(msg *Email) error {
	if len(msg.To) == 0 {
		return utils.NewAppError(utils.ErrCodeValidation, "Email recipients are required", "")
	}
	if msg.Subject == "" {
		return utils.NewAppError(utils.ErrCodeValidation, "Email subject is required", "")
	}

	for _, email := range msg.To {
		if !IsValidEmail(email) {
			return utils.NewAppError(utils.ErrCodeValidation, "Invalid email address", email)
		}
	}

	return nil
}

// IsValidEmail performs basic email validation
func IsValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	if len(local) == 0 || len(domain) == 0 {
		return false
	}
	if len(local) > 64 || len(domain) > 253 {
		return false
	}

	return true
}
