package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestPepperChangesHashes(t *testing.T) {
	old := Pepper
	defer func() { Pepper = old }()

	Pepper = "pepper-a"
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	Pepper = "pepper-b"
	if err := CheckPassword(hash, "secret"); err == nil {
		t.Fatalf("expected mismatch under different pepper")
	}
	Pepper = "pepper-a"
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected match under original pepper")
	}
}

func TestNewOTPCode(t *testing.T) {
	code, err := NewOTPCode()
	if err != nil {
		t.Fatalf("otp error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}
}

func TestHashTokenStable(t *testing.T) {
	token, err := NewPendingToken()
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if HashToken(token) != HashToken(token) {
		t.Fatalf("expected deterministic hash")
	}
	if HashToken(token) == token {
		t.Fatalf("expected hash to differ from token")
	}
}
