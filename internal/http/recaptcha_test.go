package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecaptchaDisabledWithoutSecret(t *testing.T) {
	v := NewRecaptchaVerifier("")
	if v.Enabled() {
		t.Fatal("empty secret must disable verification")
	}
	if err := v.Verify(context.Background(), "", ""); err != nil {
		t.Fatalf("disabled verifier must accept everything, got %v", err)
	}
}

func TestRecaptchaVerify(t *testing.T) {
	var sawToken string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		sawToken = r.PostFormValue("response")
		if sawToken == "good" {
			w.Write([]byte(`{"success":true}`))
			return
		}
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer ts.Close()

	v := NewRecaptchaVerifier("secret")
	v.endpoint = ts.URL

	if err := v.Verify(context.Background(), "good", "1.2.3.4"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if sawToken != "good" {
		t.Fatalf("server saw token %q", sawToken)
	}

	err := v.Verify(context.Background(), "bad", "")
	if !errors.Is(err, ErrCaptchaFailed) {
		t.Fatalf("invalid token: got %v, want ErrCaptchaFailed", err)
	}

	if err := v.Verify(context.Background(), "", ""); !errors.Is(err, ErrCaptchaFailed) {
		t.Fatalf("missing token: got %v, want ErrCaptchaFailed", err)
	}
}
