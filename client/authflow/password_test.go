package authflow

import "testing"

func TestPasswordChecklist(t *testing.T) {
	cases := []struct {
		name       string
		password   string
		confirm    string
		identifier string
		ok         bool
	}{
		{"too short", "short1!", "short1!", "", false},
		{"no uppercase", "alllowercase123!", "alllowercase123!", "", false},
		{"no lowercase", "ALLUPPER123!", "ALLUPPER123!", "", false},
		{"no digit", "NoDigitsHere!", "NoDigitsHere!", "", false},
		{"no special", "NoSpecial1234Aa", "NoSpecial1234Aa", "", false},
		{"contains username", "Password1234!", "Password1234!", "password", false},
		{"contains email local part", "Password1234!", "Password1234!", "password@uni.edu", false},
		{"mismatched confirmation", "Tr0ub4dor&3XYZ", "Tr0ub4dor&3xyz", "jane.doe", false},
		{"strong", "Tr0ub4dor&3XYZ", "Tr0ub4dor&3XYZ", "jane.doe", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PasswordOK(tc.password, tc.confirm, tc.identifier); got != tc.ok {
				t.Fatalf("PasswordOK(%q, %q, %q) = %v, want %v", tc.password, tc.confirm, tc.identifier, got, tc.ok)
			}
		})
	}
}

func TestChecklistReportsEveryRule(t *testing.T) {
	checks := EvaluatePassword("", "", "")
	if len(checks) != 8 {
		t.Fatalf("expected 8 checklist rows, got %d", len(checks))
	}
	// An empty password fails everything except the containment and
	// common-password rules, and the confirmation row never passes for
	// an empty password even when the confirmation is empty too.
	for _, check := range checks[:5] {
		if check.OK {
			t.Errorf("rule %q unexpectedly passed for empty password", check.Label)
		}
	}
	if last := checks[len(checks)-1]; last.OK {
		t.Errorf("rule %q unexpectedly passed for empty password", last.Label)
	}
}

func TestConfirmationRowTracksMatch(t *testing.T) {
	checks := EvaluatePassword("Tr0ub4dor&3XYZ", "different", "jane.doe")
	last := checks[len(checks)-1]
	if last.OK {
		t.Fatal("confirmation row must fail on a mismatch")
	}

	checks = EvaluatePassword("Tr0ub4dor&3XYZ", "Tr0ub4dor&3XYZ", "jane.doe")
	last = checks[len(checks)-1]
	if !last.OK {
		t.Fatal("confirmation row must pass when the entries match")
	}
}

func TestCommonPasswordRejected(t *testing.T) {
	if PasswordOK("Password1234!", "Password1234!", "unrelated") {
		t.Fatal("common password must be rejected")
	}
}
