package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	sessionCookie = "ytcat_session"
	sessionMaxAge = 30 * 24 * time.Hour
)

var errBadSession = errors.New("invalid session cookie")

// Session is the state carried in the signed cookie.
type Session struct {
	UserID string `json:"uid,omitempty"`
	// State is the OAuth state of the consent this browser started.
	State    string `json:"state,omitempty"`
	IssuedAt int64  `json:"iat"`
}

// Sessions signs and verifies session cookies with [securecookie].
type Sessions struct {
	codec  *securecookie.SecureCookie
	secure bool
	now    func() time.Time
}

// NewSessions returns a codec keyed by secret. An empty secret gets a random key, so sessions do not survive a restart.
func NewSessions(secret string, secure bool) (*Sessions, error) {
	key := []byte(secret)
	if secret == "" {
		if key = securecookie.GenerateRandomKey(32); key == nil {
			return nil, errors.New("failed to generate session key")
		}
	}

	codec := securecookie.New(key, nil).
		MaxAge(int(sessionMaxAge.Seconds())).
		SetSerializer(securecookie.JSONEncoder{})
	return &Sessions{codec: codec, secure: secure, now: time.Now}, nil
}

// Encode stamps sess with the current time and serializes it into a cookie value.
func (s *Sessions) Encode(sess Session) (string, error) {
	sess.IssuedAt = s.now().Unix()
	value, err := s.codec.Encode(sessionCookie, sess)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	return value, nil
}

// Decode verifies and parses a value produced by [Sessions.Encode].
//
// Values that fail verification or were issued more than 30 days ago return errBadSession.
func (s *Sessions) Decode(value string) (Session, error) {
	var sess Session
	if err := s.codec.Decode(sessionCookie, value, &sess); err != nil {
		return Session{}, fmt.Errorf("%w: %v", errBadSession, err)
	}
	if s.now().Sub(time.Unix(sess.IssuedAt, 0)) > sessionMaxAge {
		return Session{}, fmt.Errorf("%w: expired", errBadSession)
	}
	return sess, nil
}

// Read returns the request's session; a missing or tampered cookie yields an empty one.
func (s *Sessions) Read(r *http.Request) Session {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return Session{}
	}
	sess, err := s.Decode(c.Value)
	if err != nil {
		return Session{}
	}
	return sess
}

// Write sets the session cookie on w.
func (s *Sessions) Write(w http.ResponseWriter, sess Session) error {
	value, err := s.Encode(sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
