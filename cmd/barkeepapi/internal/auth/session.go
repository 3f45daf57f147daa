package auth

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	httphelper "github.com/zitadel/oidc/v3/pkg/http"
	"golang.org/x/crypto/hkdf"
)

const (
	// SessionCookieName holds the encrypted principal.
	SessionCookieName = "barkeep.session"

	// PendingCookieName holds the subject of a login awaiting registration.
	PendingCookieName = "barkeep.pending"

	// SessionDuration is the default session lifetime (12 hours)
	SessionDuration = 12 * time.Hour

	// PendingDuration bounds how long a user may take to confirm registration.
	PendingDuration = 10 * time.Minute

	// MinSecretLength is the minimum accepted size of the session secret in bytes.
	MinSecretLength = 32
)

// SessionStore is the per-browser store holding the authenticated principal.
// Absence is not an error: Principal returns (nil, nil) when no session exists.
type SessionStore interface {
	Principal(r *http.Request) (*Principal, error)
	SetPrincipal(w http.ResponseWriter, p Principal) error
	ClearPrincipal(w http.ResponseWriter)

	PendingSubject(r *http.Request) (string, error)
	SetPendingSubject(w http.ResponseWriter, subject string) error
	ClearPendingSubject(w http.ResponseWriter)
}

// CookieStoreOptions configures a CookieStore.
type CookieStoreOptions struct {
	Secret []byte
	MaxAge time.Duration
	Secure bool
}

// CookieStore keeps the principal in a signed and encrypted cookie.
type CookieStore struct {
	session *httphelper.CookieHandler
	pending *httphelper.CookieHandler
}

var _ SessionStore = (*CookieStore)(nil)

// NewCookieStore creates a cookie-backed session store. Keys are derived from
// the configured secret so that every replica can read every session.
func NewCookieStore(opts CookieStoreOptions) (*CookieStore, error) {
	if opts.MaxAge <= 0 {
		opts.MaxAge = SessionDuration
	}
	sessionCookies, err := NewCookieHandler(opts.Secret, "session", opts.Secure, opts.MaxAge)
	if err != nil {
		return nil, err
	}
	pendingCookies, err := NewCookieHandler(opts.Secret, "pending", opts.Secure, PendingDuration)
	if err != nil {
		return nil, err
	}
	return &CookieStore{session: sessionCookies, pending: pendingCookies}, nil
}

// NewCookieHandler builds a zitadel cookie handler whose hash and block keys
// are derived from secret and scoped to purpose.
func NewCookieHandler(secret []byte, purpose string, secure bool, maxAge time.Duration) (*httphelper.CookieHandler, error) {
	hashKey, blockKey, err := deriveCookieKeys(secret, purpose)
	if err != nil {
		return nil, err
	}
	opts := []httphelper.CookieHandlerOpt{
		httphelper.WithSameSite(http.SameSiteLaxMode),
		httphelper.WithMaxAge(int(maxAge.Seconds())),
	}
	if !secure {
		opts = append(opts, httphelper.WithUnsecure())
	}
	return httphelper.NewCookieHandler(hashKey, blockKey, opts...), nil
}

func deriveCookieKeys(secret []byte, purpose string) ([]byte, []byte, error) {
	if len(secret) < MinSecretLength {
		return nil, nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	kdf := hkdf.New(sha256.New, secret, nil, []byte("barkeep cookie "+purpose))
	hashKey := make([]byte, 64)
	if _, err := io.ReadFull(kdf, hashKey); err != nil {
		return nil, nil, fmt.Errorf("derive cookie hash key: %w", err)
	}
	blockKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, blockKey); err != nil {
		return nil, nil, fmt.Errorf("derive cookie block key: %w", err)
	}
	return hashKey, blockKey, nil
}

// Principal returns the principal stored in the session cookie, or nil when
// the cookie is absent, expired, or fails verification.
func (s *CookieStore) Principal(r *http.Request) (*Principal, error) {
	if _, err := r.Cookie(SessionCookieName); errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	value, err := s.session.CheckCookie(r, SessionCookieName)
	if err != nil {
		log.Printf("session: discarding unreadable session cookie: %v", err)
		return nil, nil
	}
	var stored struct {
		Subject string `json:"sub"`
		Role    int    `json:"role"`
	}
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		log.Printf("session: discarding malformed session payload: %v", err)
		return nil, nil
	}
	role, err := ParseRole(stored.Role)
	if err != nil {
		log.Printf("session: discarding session for %s: %v", stored.Subject, err)
		return nil, nil
	}
	return &Principal{Subject: stored.Subject, Role: role}, nil
}

// SetPrincipal writes p into the session cookie, replacing any previous principal.
func (s *CookieStore) SetPrincipal(w http.ResponseWriter, p Principal) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode principal: %w", err)
	}
	if err := s.session.SetCookie(w, SessionCookieName, string(payload)); err != nil {
		return fmt.Errorf("write session cookie: %w", err)
	}
	return nil
}

// ClearPrincipal expires the session cookie. It is safe to call without a session.
func (s *CookieStore) ClearPrincipal(w http.ResponseWriter) {
	s.session.DeleteCookie(w, SessionCookieName)
}

// PendingSubject returns the subject of a login that is awaiting registration.
func (s *CookieStore) PendingSubject(r *http.Request) (string, error) {
	if _, err := r.Cookie(PendingCookieName); errors.Is(err, http.ErrNoCookie) {
		return "", nil
	}
	subject, err := s.pending.CheckCookie(r, PendingCookieName)
	if err != nil {
		log.Printf("session: discarding unreadable pending cookie: %v", err)
		return "", nil
	}
	return subject, nil
}

// SetPendingSubject records a verified subject that has no identity record yet.
func (s *CookieStore) SetPendingSubject(w http.ResponseWriter, subject string) error {
	if err := s.pending.SetCookie(w, PendingCookieName, subject); err != nil {
		return fmt.Errorf("write pending cookie: %w", err)
	}
	return nil
}

// ClearPendingSubject expires the pending registration cookie.
func (s *CookieStore) ClearPendingSubject(w http.ResponseWriter) {
	s.pending.DeleteCookie(w, PendingCookieName)
}
