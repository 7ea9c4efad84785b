package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"testing"

	"github.com/AartiThube09/Smart-Serveillance-System/internal/config"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"wrapped auth", fmt.Errorf("send: %w", ErrAuth), CauseAuth},
		{"dial timeout", &net.OpError{Op: "dial", Err: errors.New("timeout")}, CauseNetwork},
		{"protocol error", errors.New("550 mailbox unavailable"), CauseOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifySMTPRejectionCodes(t *testing.T) {
	for _, code := range []int{530, 534, 535} {
		err := classifySMTP(&textproto.Error{Code: code, Msg: "authentication required"})
		if !errors.Is(err, ErrAuth) {
			t.Errorf("code %d not classified as auth failure", code)
		}
	}

	err := classifySMTP(&textproto.Error{Code: 452, Msg: "mailbox full"})
	if errors.Is(err, ErrAuth) {
		t.Error("non-auth rejection classified as auth failure")
	}
}

func TestSendWithoutCredentialsIsAuthFailure(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587})
	err := s.Send(context.Background(), "subject", "body", nil, "")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("missing credentials err = %v, want ErrAuth", err)
	}
}

func TestBuildMessageStructure(t *testing.T) {
	attachment := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	msg, err := buildMessage("from@example.com", "to@example.com", "ALERT", "weapon detected", attachment, "evidence.jpg")
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}

	text := string(msg)
	for _, want := range []string{
		"From: from@example.com",
		"To: to@example.com",
		"Subject: ALERT",
		"multipart/mixed",
		"weapon detected",
		"image/jpeg",
		`filename="evidence.jpg"`,
		"base64",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q", want)
		}
	}

	// Attachment is base64, not raw bytes.
	if bytes.Contains(msg, attachment) {
		t.Error("attachment embedded as raw bytes")
	}
}

func TestBuildMessageWithoutAttachment(t *testing.T) {
	msg, err := buildMessage("from@example.com", "to@example.com", "ALERT", "crowd detected", nil, "")
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	if strings.Contains(string(msg), "image/jpeg") {
		t.Error("attachment part present without attachment data")
	}
}
