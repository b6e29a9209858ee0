package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildPersonOTPDefault(t *testing.T) {
	s := &Server{}

	cases := []struct {
		name       string
		body       string
		defaultOTP bool
		want       bool
	}{
		{"faculty default off", `{"email":"jane@uni.edu","first_name":"Jane","last_name":"Doe","password":"Tr0ub4dor&3XYZ"}`, false, false},
		{"department head default on", `{"email":"jane@uni.edu","first_name":"Jane","last_name":"Doe","password":"Tr0ub4dor&3XYZ"}`, true, true},
		{"explicit false wins", `{"email":"jane@uni.edu","first_name":"Jane","last_name":"Doe","password":"Tr0ub4dor&3XYZ","otp_enabled":false}`, true, false},
		{"explicit true wins", `{"email":"jane@uni.edu","first_name":"Jane","last_name":"Doe","password":"Tr0ub4dor&3XYZ","otp_enabled":true}`, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			person, ok := s.buildPerson(rec, r, tc.defaultOTP)
			if !ok {
				t.Fatalf("buildPerson rejected the request: %s", rec.Body.String())
			}
			if person.OTPEnabled != tc.want {
				t.Fatalf("OTPEnabled = %v, want %v", person.OTPEnabled, tc.want)
			}
			if !person.MustChangePassword {
				t.Fatal("new accounts must start with a forced password change")
			}
		})
	}
}
