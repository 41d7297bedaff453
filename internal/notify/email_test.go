package notify

import (
	"context"
	"encoding/base64"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartdevs17/report-dispatcher/internal/config"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

func testSender() *SMTPSender {
	return NewSMTPSender(&config.EmailConfig{
		SMTPHost:  "localhost",
		SMTPPort:  587,
		FromEmail: "reports@example.com",
		FromName:  "Analytics Reports",
	})
}

func TestBuildMessagePlain(t *testing.T) {
	s := testSender()

	msg := s.buildMessage(&Email{
		To:       []string{"analyst@example.com"},
		Subject:  "Daily Overview - January 15, 2024",
		HTMLBody: "<p>report attached</p>",
	})

	assert.Contains(t, msg, "From: Analytics Reports <reports@example.com>")
	assert.Contains(t, msg, "To: analyst@example.com")
	assert.Contains(t, msg, "Subject: Daily Overview - January 15, 2024")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, msg, "<p>report attached</p>")
	assert.NotContains(t, msg, "multipart/mixed")
}

func TestBuildMessageWithAttachment(t *testing.T) {
	s := testSender()

	data := []byte(strings.Repeat("pdf-bytes-", 20))
	msg := s.buildMessage(&Email{
		To:       []string{"a@example.com", "b@example.com"},
		Subject:  "Report",
		HTMLBody: "<p>body</p>",
		Attachment: &Attachment{
			Filename:    "report-r1-1705312800000.pdf",
			ContentType: "application/pdf",
			Data:        data,
		},
	})

	assert.Contains(t, msg, "To: a@example.com, b@example.com")
	assert.Contains(t, msg, "Content-Type: multipart/mixed; boundary=report-dispatcher-boundary")
	assert.Contains(t, msg, `Content-Disposition: attachment; filename="report-r1-1705312800000.pdf"`)
	assert.Contains(t, msg, "Content-Transfer-Encoding: base64")

	// Base64 payload wrapped at 76 columns
	encoded := base64.StdEncoding.EncodeToString(data)
	assert.Contains(t, msg, encoded[:76])
	for _, line := range strings.Split(msg, "\r\n") {
		assert.LessOrEqual(t, len(line), 200, "no unwrapped lines")
	}
	assert.True(t, strings.HasSuffix(msg, "--report-dispatcher-boundary--\r\n"))
}

func TestEmailValidation(t *testing.T) {
	s := testSender()

	err := s.validate(&Email{Subject: "s"})
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeValidation, utils.ErrorCode(err))

	err = s.validate(&Email{To: []string{"analyst@example.com"}})
	require.Error(t, err)

	err = s.validate(&Email{To: []string{"not-an-email"}, Subject: "s"})
	require.Error(t, err)

	err = s.validate(&Email{To: []string{"analyst@example.com"}, Subject: "s"})
	require.NoError(t, err)
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@example.com", "ops+reports@example.io"}
	for _, e := range valid {
		assert.True(t, IsValidEmail(e), e)
	}

	invalid := []string{"", "plain", "@example.com", "user@", "a@b@c.com"}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), e)
	}
}

func TestSendTimesOutOnSilentServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept connections but never send the SMTP greeting.
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	s := NewSMTPSender(&config.EmailConfig{
		SMTPHost:  "127.0.0.1",
		SMTPPort:  ln.Addr().(*net.TCPAddr).Port,
		FromEmail: "reports@example.com",
		FromName:  "Analytics Reports",
		UseTLS:    false,
		Timeout:   200 * time.Millisecond,
	})

	start := time.Now()
	err = s.Send(context.Background(), &Email{
		To:       []string{"analyst@example.com"},
		Subject:  "Daily Overview",
		HTMLBody: "<p>report attached</p>",
	})
	require.Error(t, err)
	assert.Equal(t, utils.ErrCodeDelivery, utils.ErrorCode(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}
