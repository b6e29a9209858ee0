package authflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"sfme/evaluation/client/api"
	"sfme/evaluation/client/nav"
	"sfme/evaluation/client/session"
)

type testEnv struct {
	flow     *Flow
	session  *session.Store
	nav      *nav.Navigator
	requests *int32
}

func newTestEnv(t *testing.T, role string, handler http.HandlerFunc) *testEnv {
	t.Helper()

	var requests int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		handler(w, r)
	}))
	t.Cleanup(ts.Close)

	store := session.NewStore(session.NewMemoryKV(), nil)
	navigator := nav.NewNavigator("/")
	flow := New(Config{
		API:            api.New(ts.URL),
		Session:        store,
		Nav:            navigator,
		Role:           role,
		CaptchaSiteKey: "site-key",
	})
	return &testEnv{flow: flow, session: store, nav: navigator, requests: &requests}
}

func (e *testEnv) requestCount() int32 {
	return atomic.LoadInt32(e.requests)
}

func TestEmptyCredentialsSkipNetwork(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})

	env.flow.Submit(context.Background(), "", "Secret-pass-123", "ctok")
	env.flow.Submit(context.Background(), "2024-001", "", "ctok")
	env.flow.Submit(context.Background(), "   ", "Secret-pass-123", "ctok")

	if env.requestCount() != 0 {
		t.Fatalf("%d requests sent, want 0", env.requestCount())
	}
	if env.flow.Message() == "" {
		t.Fatal("expected a prompt to fill in credentials")
	}
	if env.flow.State() != StateCredentials {
		t.Fatal("state should remain Credentials")
	}
}

func TestShortPasswordSkipsNetwork(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})

	env.flow.Submit(context.Background(), "2024-001", "short1!", "ctok")

	if env.requestCount() != 0 {
		t.Fatal("a too-short password must not reach the network")
	}
	if env.flow.Message() == "" {
		t.Fatal("expected a length message")
	}
}

func TestMissingSiteKeyBlocksSubmission(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})
	env.flow.cfg.CaptchaSiteKey = ""

	env.flow.Submit(context.Background(), "2024-001", "Secret-pass-123", "ctok")

	if env.requestCount() != 0 {
		t.Fatal("login must not proceed without a captcha site key")
	}
	if env.flow.Message() != msgCaptchaMissing {
		t.Fatalf("message = %q, want the configuration error", env.flow.Message())
	}
}

func TestMissingCaptchaTokenBlocksSubmission(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})

	env.flow.Submit(context.Background(), "2024-001", "Secret-pass-123", "")

	if env.requestCount() != 0 {
		t.Fatal("request sent despite missing captcha token")
	}
	if env.flow.Message() != msgCaptchaRequired {
		t.Fatalf("message = %q, want the challenge prompt", env.flow.Message())
	}
}

func TestLoginSuccessNavigatesToDashboard(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/students/login/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["student_number"] != "2024-001" {
			t.Errorf("student_number = %q", body["student_number"])
		}
		if body["recaptcha_token"] != "ctok" {
			t.Errorf("recaptcha_token = %q", body["recaptcha_token"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access":"A","refresh":"R","token":"A","user":{"id":"u1","user_type":"student","must_change_password":false}}`))
	})

	env.flow.Submit(context.Background(), "2024-001", "Secret-pass-123", "ctok")

	if env.flow.State() != StateAuthenticated {
		t.Fatalf("state = %v, want Authenticated", env.flow.State())
	}
	if got := env.session.Token(); got != "A" {
		t.Fatalf("stored token = %q, want A", got)
	}
	if got := env.session.RefreshToken(); got != "R" {
		t.Fatalf("stored refresh = %q, want R", got)
	}
	if env.nav.Current() != "/dashboard" {
		t.Fatalf("navigated to %q, want /dashboard", env.nav.Current())
	}
}

func TestLoginFailureShowsGenericMessage(t *testing.T) {
	env := newTestEnv(t, "faculty", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_credentials"}`))
	})

	env.flow.Submit(context.Background(), "jane@uni.edu", "WrongPass1234!", "ctok")

	if env.flow.Message() != msgInvalidCredentials {
		t.Fatalf("message = %q, want the generic line", env.flow.Message())
	}
	if env.session.Token() != "" {
		t.Fatal("no token may be stored on failure")
	}
}

func TestRateLimitedPrefersServerDetail(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "59")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate_limited","detail":"Too many login attempts. Try again in 59 seconds."}`))
	})

	env.flow.Submit(context.Background(), "2024-001", "Secret-pass-123", "ctok")

	if env.flow.Message() != "Too many login attempts. Try again in 59 seconds." {
		t.Fatalf("message = %q, want the server's detail verbatim", env.flow.Message())
	}
}

func TestRateLimitedFallsBackToRetryAfter(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "59")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate_limited"}`))
	})

	env.flow.Submit(context.Background(), "2024-001", "Secret-pass-123", "ctok")

	if env.flow.Message() != "Too many attempts. Try again in 59 seconds." {
		t.Fatalf("message = %q, want the templated wait line", env.flow.Message())
	}
}

func TestOTPChallengeThenVerify(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/students/login/":
			w.Write([]byte(`{"otp_required":true,"pending_token":"P1","email":"j***e@uni.edu","expires_at":"2026-01-01T00:00:00Z"}`))
		case "/otp/verify/":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["pending_token"] != "P1" || body["otp"] != "123456" {
				t.Errorf("verify body: %v", body)
			}
			w.Write([]byte(`{"access":"T","refresh":"R2","token":"T","user":{"id":"u1","user_type":"student"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	env.flow.Submit(context.Background(), "2024-001", "Secret-pass-123", "ctok")
	if env.flow.State() != StateOTPPending {
		t.Fatalf("state = %v, want OTPPending", env.flow.State())
	}
	if env.flow.MaskedEmail() != "j***e@uni.edu" {
		t.Fatalf("masked email = %q", env.flow.MaskedEmail())
	}
	if env.session.Token() != "" {
		t.Fatal("no token before the code is verified")
	}

	env.flow.VerifyOTP(context.Background(), "123456")

	if env.flow.State() != StateAuthenticated {
		t.Fatalf("state = %v, want Authenticated", env.flow.State())
	}
	if got := env.session.Token(); got != "T" {
		t.Fatalf("stored token = %q, want T", got)
	}
	if env.nav.Current() != "/dashboard" {
		t.Fatalf("navigated to %q, want /dashboard", env.nav.Current())
	}
}

func TestForgotPasswordResetSignsIn(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/password-reset/send/":
			w.Write([]byte(`{"otp_required":true,"pending_token":"P-reset","email":"j***e@uni.edu"}`))
		case "/otp/verify/":
			w.Write([]byte(`{"pending_token":"P"}`))
		case "/password-reset/confirm/":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["pending_token"] != "P" {
				t.Errorf("confirm used ticket %q, want P", body["pending_token"])
			}
			w.Write([]byte(`{"access":"NT","refresh":"NR","token":"NT","user":{"id":"u1","user_type":"student","must_change_password":false}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	env.flow.ForgotPassword(context.Background(), "jane@uni.edu")
	if env.flow.State() != StateOTPPending {
		t.Fatalf("state = %v, want OTPPending", env.flow.State())
	}

	env.flow.VerifyOTP(context.Background(), "654321")

	if env.flow.State() != StateForceChangePassword {
		t.Fatalf("state = %v, want ForceChangePassword", env.flow.State())
	}
	if env.session.Token() != "" {
		t.Fatal("a reset ticket must not create a session")
	}

	env.flow.SubmitNewPassword(context.Background(), "", "Tr0ub4dor&3XYZ", "Tr0ub4dor&3XYZ")

	if env.flow.State() != StateAuthenticated {
		t.Fatalf("state = %v, want Authenticated after the reset", env.flow.State())
	}
	if got := env.session.Token(); got != "NT" {
		t.Fatalf("stored token = %q, want NT", got)
	}
	if env.nav.Current() != "/dashboard" {
		t.Fatalf("navigated to %q, want /dashboard", env.nav.Current())
	}
}

func TestForcedChangeSignsInWithFreshTokens(t *testing.T) {
	env := newTestEnv(t, "faculty", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/faculty/login/":
			w.Write([]byte(`{"access":"A","token":"A","user":{"id":"u2","user_type":"faculty","email":"jane@uni.edu","must_change_password":true}}`))
		case "/faculty/change-password/":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "jane@uni.edu" || body["old_password"] != "OldSecret123!" {
				t.Errorf("change body: %v", body)
			}
			w.Write([]byte(`{"access":"A2","refresh":"R2","token":"A2","user":{"id":"u2","user_type":"faculty","must_change_password":false}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	env.flow.Submit(context.Background(), "jane@uni.edu", "OldSecret123!", "ctok")

	if env.flow.State() != StateForceChangePassword {
		t.Fatalf("state = %v, want ForceChangePassword", env.flow.State())
	}

	env.flow.SubmitNewPassword(context.Background(), "OldSecret123!", "Tr0ub4dor&3XYZ", "Tr0ub4dor&3XYZ")

	if env.flow.State() != StateAuthenticated {
		t.Fatalf("state = %v, want Authenticated", env.flow.State())
	}
	if got := env.session.Token(); got != "A2" {
		t.Fatalf("stored token = %q, want A2", got)
	}
	if env.nav.Current() != "/faculty-dashboard" {
		t.Fatalf("navigated to %q, want /faculty-dashboard", env.nav.Current())
	}
}

func TestForcedChangeReusesStoredSession(t *testing.T) {
	env := newTestEnv(t, "faculty", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/faculty/change-password/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"password_updated"}`))
	})

	env.session.SaveToken("existing")
	env.session.SaveUser(session.User{ID: "u2", Email: "jane@uni.edu", UserType: "faculty", MustChangePassword: true})
	env.flow.identifier = "jane@uni.edu"
	env.flow.state = StateForceChangePassword

	env.flow.SubmitNewPassword(context.Background(), "OldSecret123!", "Tr0ub4dor&3XYZ", "Tr0ub4dor&3XYZ")

	if env.flow.State() != StateAuthenticated {
		t.Fatalf("state = %v, want Authenticated", env.flow.State())
	}
	if got := env.session.Token(); got != "existing" {
		t.Fatalf("session token = %q, the stored session must be reused", got)
	}
	if user, ok := env.session.User(); !ok || user.MustChangePassword {
		t.Fatal("stored user should no longer require a change")
	}
	if env.nav.Current() != "/faculty-dashboard" {
		t.Fatalf("navigated to %q, want /faculty-dashboard", env.nav.Current())
	}
}

func TestForcedChangeAutoReloginFallback(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/students/change-password/":
			w.Write([]byte(`{"status":"password_updated"}`))
		case "/students/login/":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "Tr0ub4dor&3XYZ" {
				t.Errorf("re-login used password %q", body["password"])
			}
			w.Write([]byte(`{"access":"RA","token":"RA","user":{"id":"u1","user_type":"student"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	env.flow.identifier = "2024-001"
	env.flow.state = StateForceChangePassword

	env.flow.SubmitNewPassword(context.Background(), "OldSecret123!", "Tr0ub4dor&3XYZ", "Tr0ub4dor&3XYZ")

	if env.flow.State() != StateAuthenticated {
		t.Fatalf("state = %v, want Authenticated via re-login", env.flow.State())
	}
	if got := env.session.Token(); got != "RA" {
		t.Fatalf("stored token = %q, want RA", got)
	}
	if env.nav.Current() != "/dashboard" {
		t.Fatalf("navigated to %q, want /dashboard", env.nav.Current())
	}
}

func TestForcedChangeManualFallbackWhenReloginFails(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/students/change-password/":
			w.Write([]byte(`{"status":"password_updated"}`))
		case "/students/login/":
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_credentials"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	env.flow.identifier = "2024-001"
	env.flow.state = StateForceChangePassword

	env.flow.SubmitNewPassword(context.Background(), "OldSecret123!", "Tr0ub4dor&3XYZ", "Tr0ub4dor&3XYZ")

	if env.flow.State() != StateCredentials {
		t.Fatalf("state = %v, want Credentials when every fallback fails", env.flow.State())
	}
	if env.session.Token() != "" {
		t.Fatal("session must be cleared before manual sign-in")
	}
	if env.flow.Message() == "" {
		t.Fatal("expected a sign-in prompt")
	}
}

func TestMismatchedConfirmationStaysLocal(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})
	env.flow.state = StateForceChangePassword

	env.flow.SubmitNewPassword(context.Background(), "old", "Tr0ub4dor&3XYZ", "different")

	if env.requestCount() != 0 {
		t.Fatal("mismatched confirmation must not reach the network")
	}
	if env.flow.Message() != "Passwords do not match." {
		t.Fatalf("message = %q", env.flow.Message())
	}
}

func TestCloseStopsTheFlow(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent")
	})

	env.flow.Close()
	env.flow.Submit(context.Background(), "2024-001", "Secret-pass-123", "ctok")

	if env.requestCount() != 0 {
		t.Fatal("closed flow must not send requests")
	}
	if env.flow.State() != StateClosed {
		t.Fatal("state should remain Closed")
	}
}

func TestResumeWithStoredSession(t *testing.T) {
	env := newTestEnv(t, "student", func(w http.ResponseWriter, r *http.Request) {
		t.Error("resume must not hit the network")
	})

	env.session.SaveToken("stored")
	env.session.SaveUser(session.User{ID: "u1", UserType: "department_head"})

	if !env.flow.Resume() {
		t.Fatal("expected resume to succeed")
	}
	if env.flow.State() != StateAuthenticated {
		t.Fatalf("state = %v, want Authenticated", env.flow.State())
	}
	if env.nav.Current() != "/depthead-dashboard" {
		t.Fatalf("navigated to %q, want /depthead-dashboard", env.nav.Current())
	}
}
