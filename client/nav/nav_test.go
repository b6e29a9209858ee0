package nav

import "testing"

func TestNavigatorNotifiesSubscribers(t *testing.T) {
	n := NewNavigator("/")

	var seen []string
	n.Subscribe(func(path string) { seen = append(seen, path) })

	n.Navigate("/dashboard")
	n.Navigate("/about")

	if n.Current() != "/about" {
		t.Fatalf("Current() = %q, want /about", n.Current())
	}
	if len(seen) != 2 || seen[0] != "/dashboard" || seen[1] != "/about" {
		t.Fatalf("subscriber saw %v", seen)
	}
}

func TestRouterFirstMatchWins(t *testing.T) {
	router := NewRouter("fallback")
	router.Handle("/dash", "first")
	router.Handle("/dashboard", "never-reached")

	if got := router.Resolve("/dashboard/settings"); got != "first" {
		t.Fatalf("Resolve = %q, want first (registration order wins)", got)
	}
}

func TestRouterDefault(t *testing.T) {
	router := DefaultRouter()

	cases := map[string]string{
		"/about":              "about",
		"/contact":            "contact",
		"/faculty-dashboard":  "faculty-dashboard",
		"/depthead-dashboard": "depthead-dashboard",
		"/dashboard":          "student-dashboard",
		"/dashboard/modules":  "student-dashboard",
		"/nowhere":            "login",
		"":                    "login",
	}
	for path, want := range cases {
		if got := router.Resolve(path); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDashboardPath(t *testing.T) {
	cases := map[string]string{
		"student":         "/dashboard",
		"faculty":         "/faculty-dashboard",
		"department_head": "/depthead-dashboard",
		"":                "/dashboard",
	}
	for userType, want := range cases {
		if got := DashboardPath(userType); got != want {
			t.Errorf("DashboardPath(%q) = %q, want %q", userType, got, want)
		}
	}
}
