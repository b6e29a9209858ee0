package mail

import (
	"strings"
	"testing"
)

func TestOTPBody(t *testing.T) {
	body := OTPBody("Evaluation", "042137", 5)
	if !strings.Contains(body, "042137") {
		t.Fatal("body must contain the code")
	}
	if !strings.Contains(body, "5 minutes") {
		t.Fatal("body must state the expiry")
	}
}

func TestLogMailerNeverFails(t *testing.T) {
	m := NewLogMailer("Evaluation")
	if err := m.Send("x@example.com", "s", "b"); err != nil {
		t.Fatalf("log mailer returned %v", err)
	}
}
