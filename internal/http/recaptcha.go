package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

var ErrCaptchaFailed = errors.New("captcha verification failed")

// RecaptchaVerifier checks reCAPTCHA tokens against Google's siteverify
// endpoint. An empty secret disables verification entirely.
type RecaptchaVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

func NewRecaptchaVerifier(secret string) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		secret:   secret,
		endpoint: recaptchaVerifyURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *RecaptchaVerifier) Enabled() bool {
	return v.secret != ""
}

func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if v.secret == "" {
		return nil
	}
	if token == "" {
		return ErrCaptchaFailed
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode siteverify response: %w", err)
	}
	if !result.Success {
		return ErrCaptchaFailed
	}
	return nil
}
