// Package notify holds the outbound alert channels: SMTP email and the
// optional MQTT uplink.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/config"
)

// ErrAuth marks SMTP failures caused by missing or rejected credentials, so
// the dispatcher can log actionable guidance instead of a generic failure.
var ErrAuth = errors.New("smtp authentication failed")

// Failure causes reported by Classify.
const (
	CauseAuth    = "auth"
	CauseNetwork = "network"
	CauseOther   = "other"
)

// Classify buckets an email send error for diagnostics and metrics.
func Classify(err error) string {
	if errors.Is(err, ErrAuth) {
		return CauseAuth
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CauseNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return CauseNetwork
	}
	return CauseOther
}

// SMTPSender delivers alert emails with a JPEG evidence attachment over
// SMTP with STARTTLS.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send builds a multipart MIME message and submits it. The context bounds
// the whole exchange via the connection deadline.
func (s *SMTPSender) Send(ctx context.Context, subject, body string, attachment []byte, attachmentName string) error {
	if s.cfg.Sender == "" || s.cfg.Password == "" {
		return fmt.Errorf("sender credentials not configured: %w", ErrAuth)
	}

	msg, err := buildMessage(s.cfg.Sender, s.cfg.Recipient, subject, body, attachment, attachmentName)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Sender, s.cfg.Password, s.cfg.Host)

	if err := s.sendMail(ctx, addr, auth, msg); err != nil {
		return classifySMTP(err)
	}
	return nil
}

// sendMail mirrors smtp.SendMail but honours the context deadline on the
// underlying connection.
func (s *SMTPSender) sendMail(ctx context.Context, addr string, auth smtp.Auth, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(s.cfg.Sender); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(s.cfg.Recipient); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return client.Quit()
}

// classifySMTP wraps protocol-level rejection codes that indicate bad
// credentials with ErrAuth; everything else passes through for Classify to
// bucket as network or other.
func classifySMTP(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
	}
	return err
}

// buildMessage assembles a multipart/mixed MIME message with a plain-text
// body and one base64-encoded JPEG attachment.
func buildMessage(from, to, subject, body string, attachment []byte, attachmentName string) ([]byte, error) {
	var buf bytes.Buffer
	mp := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mp.Boundary())

	textPart, err := mp.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return nil, err
	}

	if len(attachment) > 0 {
		imgPart, err := mp.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"image/jpeg"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachmentName)},
		})
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(attachment)
		// RFC 2045 line length limit.
		for len(encoded) > 76 {
			if _, err := fmt.Fprintf(imgPart, "%s\r\n", encoded[:76]); err != nil {
				return nil, err
			}
			encoded = encoded[76:]
		}
		if _, err := fmt.Fprintf(imgPart, "%s\r\n", encoded); err != nil {
			return nil, err
		}
	}

	if err := mp.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
