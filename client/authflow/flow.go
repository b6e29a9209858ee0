// Package authflow drives the login screen: credentials, the OTP
// challenge, forced password changes, and the forgot-password path.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sfme/evaluation/client/api"
	"sfme/evaluation/client/nav"
	"sfme/evaluation/client/session"
)

type State int

const (
	StateCredentials State = iota
	StateOTPPending
	StateForceChangePassword
	StateAuthenticated
	StateClosed
)

const (
	msgInvalidCredentials = "Invalid credentials. Please try again."
	msgCaptchaMissing     = "Sign-in is unavailable: verification is not configured. Contact your administrator."
	msgCaptchaRequired    = "Please complete the verification challenge."
	msgServerUnreachable  = "Could not reach the server. Check your connection and try again."
)

// Config wires a Flow to its surroundings.
type Config struct {
	API     *api.Client
	Session *session.Store
	Nav     *nav.Navigator

	// Role selects the login endpoint: student, faculty or
	// department_head.
	Role string

	// CaptchaSiteKey being set means the login form must supply a
	// captcha token with every submission.
	CaptchaSiteKey string
}

// Flow is one login attempt's state machine. It is not safe for
// concurrent use; drive it from the UI loop.
type Flow struct {
	cfg   Config
	state State

	pendingToken string
	maskedEmail  string
	resetTicket  string
	identifier   string

	message string
}

func New(cfg Config) *Flow {
	if cfg.Role == "" {
		cfg.Role = "student"
	}
	return &Flow{cfg: cfg}
}

func (f *Flow) State() State { return f.state }

// Message is the text currently shown under the form, empty when there
// is nothing to report.
func (f *Flow) Message() string { return f.message }

// Resume restores a previous session: with a stored token the user goes
// straight to their dashboard.
func (f *Flow) Resume() bool {
	if f.state == StateClosed {
		return false
	}
	token := f.cfg.Session.Token()
	user, ok := f.cfg.Session.User()
	if token == "" || !ok {
		return false
	}
	if user.MustChangePassword {
		f.identifier = user.Email
		f.state = StateForceChangePassword
		return true
	}
	f.state = StateAuthenticated
	f.cfg.Nav.Navigate(nav.DashboardPath(user.UserType))
	return true
}

type loginPayload struct {
	StudentNumber  string `json:"student_number,omitempty"`
	Email          string `json:"email,omitempty"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptcha_token,omitempty"`
}

type authPayload struct {
	Access             string       `json:"access"`
	Refresh            string       `json:"refresh"`
	Token              string       `json:"token"`
	User               session.User `json:"user"`
	OTPRequired        bool         `json:"otp_required"`
	PendingToken       string       `json:"pending_token"`
	Email              string       `json:"email"`
	MustChangePassword bool         `json:"must_change_password"`
}

// Submit sends the credentials. Invalid input never reaches the network,
// and a missing captcha site key blocks sign-in outright rather than
// skipping verification.
func (f *Flow) Submit(ctx context.Context, identifier, password, captchaToken string) {
	if f.state == StateClosed {
		return
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		f.message = "Please enter your credentials."
		return
	}
	if len(password) < MinPasswordLength {
		f.message = "Passwords are at least 12 characters. Check your entry and try again."
		return
	}
	if f.cfg.CaptchaSiteKey == "" {
		f.message = msgCaptchaMissing
		return
	}
	if captchaToken == "" {
		f.message = msgCaptchaRequired
		return
	}

	var resp authPayload
	if err := f.cfg.API.Post(ctx, f.loginPath(), f.loginBody(identifier, password, captchaToken), &resp); err != nil {
		f.message = loginErrorMessage(err)
		return
	}

	f.identifier = identifier
	if resp.OTPRequired {
		f.pendingToken = resp.PendingToken
		f.maskedEmail = resp.Email
		f.state = StateOTPPending
		f.message = ""
		return
	}
	f.acceptTokens(resp)
}

func (f *Flow) loginPath() string {
	switch f.cfg.Role {
	case "student":
		return "/students/login/"
	case "department_head":
		return "/department-head/login/"
	default:
		return "/faculty/login/"
	}
}

func (f *Flow) loginBody(identifier, password, captchaToken string) loginPayload {
	payload := loginPayload{Password: password, RecaptchaToken: captchaToken}
	if f.cfg.Role == "student" {
		payload.StudentNumber = identifier
	} else {
		payload.Email = identifier
	}
	return payload
}

// MaskedEmail is where the OTP went, shown on the challenge screen.
func (f *Flow) MaskedEmail() string { return f.maskedEmail }

// VerifyOTP submits the emailed code for the pending challenge.
func (f *Flow) VerifyOTP(ctx context.Context, code string) {
	if f.state != StateOTPPending {
		return
	}
	code = strings.TrimSpace(code)
	if code == "" {
		f.message = "Please enter the code from your email."
		return
	}

	var resp authPayload
	err := f.cfg.API.Post(ctx, "/otp/verify/", map[string]string{
		"pending_token": f.pendingToken,
		"otp":           code,
	}, &resp)
	if err != nil {
		f.message = otpErrorMessage(err)
		return
	}

	// A reset-purpose challenge answers with a fresh pending token
	// instead of session tokens.
	if resp.Access == "" && resp.Token == "" && resp.PendingToken != "" {
		f.resetTicket = resp.PendingToken
		f.state = StateForceChangePassword
		f.message = ""
		return
	}
	f.acceptTokens(resp)
}

// ResendOTP asks for a fresh code on the same challenge.
func (f *Flow) ResendOTP(ctx context.Context) {
	if f.state != StateOTPPending {
		return
	}
	var resp authPayload
	err := f.cfg.API.Post(ctx, "/otp/send/", map[string]string{
		"pending_token": f.pendingToken,
	}, &resp)
	if err != nil {
		f.message = otpErrorMessage(err)
		return
	}
	if resp.PendingToken != "" {
		f.pendingToken = resp.PendingToken
	}
	if resp.Email != "" {
		f.maskedEmail = resp.Email
	}
	f.message = "A new code is on its way."
}

// ForgotPassword starts the reset path for the given email.
func (f *Flow) ForgotPassword(ctx context.Context, email string) {
	if f.state == StateClosed {
		return
	}
	email = strings.TrimSpace(email)
	if email == "" {
		f.message = "Please enter your email address."
		return
	}

	var resp authPayload
	err := f.cfg.API.Post(ctx, "/password-reset/send/", map[string]string{
		"email": email,
		"role":  f.cfg.Role,
	}, &resp)
	if err != nil {
		f.message = loginErrorMessage(err)
		return
	}

	f.identifier = email
	f.pendingToken = resp.PendingToken
	f.maskedEmail = resp.Email
	f.state = StateOTPPending
	f.message = "If the address is registered, a code has been sent."
}

// SubmitNewPassword completes either the reset path (via the ticket from
// VerifyOTP) or an authenticated forced change. On success the user ends
// up signed in: from the response's tokens, from the session already
// stored, or from an automatic re-login with the new password. Only when
// all three fail do they go back to the sign-in screen.
func (f *Flow) SubmitNewPassword(ctx context.Context, oldPassword, newPassword, confirm string) {
	if f.state != StateForceChangePassword {
		return
	}
	if newPassword != confirm {
		f.message = "Passwords do not match."
		return
	}
	if !PasswordOK(newPassword, confirm, f.identifier) {
		f.message = "The new password does not meet the requirements."
		return
	}

	var resp authPayload
	if f.resetTicket != "" {
		err := f.cfg.API.Post(ctx, "/password-reset/confirm/", map[string]string{
			"pending_token": f.resetTicket,
			"new_password":  newPassword,
		}, &resp)
		if err != nil {
			f.message = loginErrorMessage(err)
			return
		}
	} else {
		path := "/faculty/change-password/"
		body := map[string]string{
			"old_password": oldPassword,
			"new_password": newPassword,
		}
		switch f.cfg.Role {
		case "student":
			path = "/students/change-password/"
			body["student_number"] = f.identifier
		case "department_head":
			path = "/department-heads/change-password/"
			body["email"] = f.identifier
		default:
			body["email"] = f.identifier
		}
		if err := f.cfg.API.Post(ctx, path, body, &resp); err != nil {
			f.message = loginErrorMessage(err)
			return
		}
	}

	f.resetTicket = ""
	f.pendingToken = ""

	if resp.Access != "" || resp.Token != "" {
		f.acceptTokens(resp)
		return
	}

	// No tokens in the response: fall back to the session we already
	// hold, then to a re-login with the new password.
	if token := f.cfg.Session.Token(); token != "" {
		if user, ok := f.cfg.Session.User(); ok {
			user.MustChangePassword = false
			f.cfg.Session.SaveUser(user)
			f.state = StateAuthenticated
			f.message = ""
			f.cfg.Nav.Navigate(nav.DashboardPath(user.UserType))
			return
		}
	}

	var relogin authPayload
	err := f.cfg.API.Post(ctx, f.loginPath(), f.loginBody(f.identifier, newPassword, ""), &relogin)
	if err == nil && (relogin.Access != "" || relogin.Token != "") {
		f.acceptTokens(relogin)
		return
	}

	f.cfg.Session.Clear()
	f.state = StateCredentials
	f.message = "Password updated. Please sign in with your new password."
}

// Close finishes the flow; every later call is a no-op.
func (f *Flow) Close() {
	f.state = StateClosed
	f.pendingToken = ""
	f.resetTicket = ""
	f.message = ""
}

func (f *Flow) acceptTokens(resp authPayload) {
	token := resp.Access
	if token == "" {
		token = resp.Token
	}
	if token == "" {
		f.message = msgInvalidCredentials
		return
	}

	if resp.Refresh != "" {
		f.cfg.Session.SaveTokens(token, resp.Refresh)
	} else {
		f.cfg.Session.SaveToken(token)
	}
	f.cfg.Session.SaveUser(resp.User)

	if resp.User.MustChangePassword || resp.MustChangePassword {
		f.state = StateForceChangePassword
		f.message = "You must change your password before continuing."
		return
	}

	f.state = StateAuthenticated
	f.message = ""
	f.cfg.Nav.Navigate(nav.DashboardPath(resp.User.UserType))
}

func loginErrorMessage(err error) string {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return msgServerUnreachable
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return fmt.Sprintf("Too many attempts. Try again in %d seconds.", apiErr.RetryAfterSeconds())
	case apiErr.Code == "captcha_failed":
		return "Captcha verification failed. Please try again."
	case apiErr.Code == "weak_password":
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return "The new password does not meet the requirements."
	default:
		// Anything else reads as the generic line; the server never
		// says whether the account exists.
		return msgInvalidCredentials
	}
}

func otpErrorMessage(err error) string {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return msgServerUnreachable
	}
	switch apiErr.Code {
	case "otp_expired":
		return "The code has expired. Request a new one."
	case "otp_attempts_exceeded":
		return "Too many wrong codes. Request a new one."
	case "invalid_otp":
		return "That code is not right. Check your email and try again."
	default:
		return "Could not verify the code. Request a new one and try again."
	}
}
