package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"webHostingPortal/models"
)

func TestSMTPSender_NotConfigured(t *testing.T) {
	s := &SMTPSender{AppName: "RazorHost", Settings: func(context.Context) (models.SMTPSettings, error) {
		return models.SMTPSettings{Host: "smtp.example.com"}, nil
	}}
	err := s.Send(context.Background(), VerificationMessage("RazorHost", "a@b.co", "123456"))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestOutboxAndMessages(t *testing.T) {
	var o Outbox
	if _, ok := o.Last(); ok {
		t.Fatalf("empty outbox has no last message")
	}
	_ = o.Send(context.Background(), LoginCodeMessage("RazorHost", "a@b.co", "654321"))
	m, ok := o.Last()
	if !ok || m.To != "a@b.co" || !strings.Contains(m.Body, "654321") {
		t.Fatalf("unexpected message: %+v", m)
	}
	o.Err = errors.New("down")
	if err := o.Send(context.Background(), Message{}); err == nil {
		t.Fatalf("expected configured error")
	}
	if len(o.Messages()) != 1 {
		t.Fatalf("failed send must not be recorded")
	}
}
