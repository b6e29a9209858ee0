package http

import "testing"

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		email    string
		ok       bool
	}{
		{"too short", "short1!", "", false},
		{"no uppercase", "alllowercase123!", "", false},
		{"no lowercase", "ALLUPPER123!", "", false},
		{"no digit", "NoDigitsHere!", "", false},
		{"no special", "NoSpecial1234Aa", "", false},
		{"contains email local part", "Password1234!", "password@example.com", false},
		{"acceptable", "Tr0ub4dor&3XYZ", "someone@example.com", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password, tc.email)
			if tc.ok && err != nil {
				t.Fatalf("expected pass, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected rejection")
			}
		})
	}
}
