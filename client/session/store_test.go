package session

import (
	"errors"
	"testing"
)

func TestSaveTokensThenRead(t *testing.T) {
	store := NewStore(NewMemoryKV(), nil)

	store.SaveTokens("access-1", "refresh-1")
	if got := store.Token(); got != "access-1" {
		t.Fatalf("Token() = %q, want access-1", got)
	}
	if got := store.AccessToken(); got != "access-1" {
		t.Fatalf("AccessToken() = %q, want access-1", got)
	}
	if got := store.RefreshToken(); got != "refresh-1" {
		t.Fatalf("RefreshToken() = %q, want refresh-1", got)
	}
}

func TestSaveTokenIsCanonical(t *testing.T) {
	store := NewStore(NewMemoryKV(), nil)

	store.SaveToken("only-token")
	if got := store.Token(); got != "only-token" {
		t.Fatalf("Token() = %q, want only-token", got)
	}
	if got := store.RefreshToken(); got != "" {
		t.Fatalf("RefreshToken() = %q, want empty", got)
	}
}

func TestClearThenRead(t *testing.T) {
	store := NewStore(NewMemoryKV(), nil)
	store.SaveTokens("a", "r")
	store.SaveUser(User{ID: "u1", UserType: "student"})

	store.Clear()

	if got := store.Token(); got != "" {
		t.Fatalf("Token() after Clear = %q, want empty", got)
	}
	if got := store.RefreshToken(); got != "" {
		t.Fatalf("RefreshToken() after Clear = %q, want empty", got)
	}
	if _, ok := store.User(); ok {
		t.Fatal("User() after Clear should report absent")
	}
}

func TestUserRoundTrip(t *testing.T) {
	store := NewStore(NewMemoryKV(), nil)
	dept := "CS"
	store.SaveUser(User{
		ID:         "u1",
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane@example.com",
		UserType:   "faculty",
		Department: &dept,
	})

	user, ok := store.User()
	if !ok {
		t.Fatal("expected stored user")
	}
	if user.Email != "jane@example.com" || user.UserType != "faculty" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Department == nil || *user.Department != "CS" {
		t.Fatal("department lost in round trip")
	}
}

func TestLogoutAndReload(t *testing.T) {
	reloaded := false
	store := NewStore(NewMemoryKV(), func() { reloaded = true })
	store.SaveToken("t")

	store.LogoutAndReload()

	if !reloaded {
		t.Fatal("reload hook not invoked")
	}
	if got := store.Token(); got != "" {
		t.Fatalf("Token() after logout = %q, want empty", got)
	}
}

type brokenKV struct{}

func (brokenKV) Get(string) (string, error) { return "", errors.New("storage unavailable") }
func (brokenKV) Set(string, string) error   { return errors.New("storage unavailable") }
func (brokenKV) Delete(string) error        { return errors.New("storage unavailable") }

func TestBrokenStorageIsAbsorbed(t *testing.T) {
	store := NewStore(brokenKV{}, nil)

	// None of these may panic or return errors to the caller.
	store.SaveTokens("a", "r")
	store.SaveUser(User{ID: "u1"})
	store.Clear()

	if got := store.Token(); got != "" {
		t.Fatalf("Token() on broken storage = %q, want empty", got)
	}
	if _, ok := store.User(); ok {
		t.Fatal("User() on broken storage should report absent")
	}
}
