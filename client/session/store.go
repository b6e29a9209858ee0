// Package session keeps the signed-in user's tokens and profile in a
// small key-value store with the lifetime of the app instance.
package session

import (
	"encoding/json"
	"log"
	"sync"
)

const (
	keyToken   = "authToken"
	keyRefresh = "refreshToken"
	keyUser    = "authUser"
)

// KV is fallible string storage. Implementations may reject writes (a
// full or disabled backing store); the session layer absorbs that.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryKV is the default in-process backing store.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// User mirrors the server's signed-in user summary.
type User struct {
	ID                 string  `json:"id"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	Email              string  `json:"email"`
	UserType           string  `json:"user_type"`
	Department         *string `json:"department,omitempty"`
	StudentNumber      string  `json:"student_number,omitempty"`
	MustChangePassword bool    `json:"must_change_password"`
}

// Store serializes all session access. Storage failures are logged and
// otherwise ignored: a broken backing store must never break the app.
type Store struct {
	mu     sync.Mutex
	kv     KV
	reload func()
}

// NewStore wraps kv. reload, when non-nil, is invoked by
// LogoutAndReload after the session is cleared.
func NewStore(kv KV, reload func()) *Store {
	if kv == nil {
		kv = NewMemoryKV()
	}
	return &Store{kv: kv, reload: reload}
}

// SaveToken stores the single auth token. It is the canonical field:
// SaveTokens routes its access token through here too.
func (s *Store) SaveToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(keyToken, token)
}

// SaveTokens stores an access and refresh token pair.
func (s *Store) SaveTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(keyToken, access)
	s.set(keyRefresh, refresh)
}

// Token returns the stored auth token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(keyToken)
}

// AccessToken is an alias for Token.
func (s *Store) AccessToken() string {
	return s.Token()
}

func (s *Store) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(keyRefresh)
}

func (s *Store) SaveUser(user User) {
	encoded, err := json.Marshal(user)
	if err != nil {
		log.Printf("session: encode user: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(keyUser, string(encoded))
}

// User returns the stored profile. ok is false when no user is stored or
// the stored value does not parse.
func (s *Store) User() (User, bool) {
	s.mu.Lock()
	raw := s.get(keyUser)
	s.mu.Unlock()

	if raw == "" {
		return User{}, false
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		log.Printf("session: decode user: %v", err)
		return User{}, false
	}
	return user, true
}

// Clear drops the tokens and the user. A read after Clear sees nothing.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range []string{keyToken, keyRefresh, keyUser} {
		if err := s.kv.Delete(key); err != nil {
			log.Printf("session: delete %s: %v", key, err)
		}
	}
}

// LogoutAndReload clears the session and restarts the app shell.
func (s *Store) LogoutAndReload() {
	s.Clear()
	if s.reload != nil {
		s.reload()
	}
}

func (s *Store) set(key, value string) {
	if err := s.kv.Set(key, value); err != nil {
		log.Printf("session: set %s: %v", key, err)
	}
}

func (s *Store) get(key string) string {
	value, err := s.kv.Get(key)
	if err != nil {
		log.Printf("session: get %s: %v", key, err)
		return ""
	}
	return value
}
