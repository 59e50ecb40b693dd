package domain

import "time"

// DefaultSessionTTL is the session lifetime used when none is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Session is the server-side record of a login. It lives in the session
// cache under its ID and disappears on logout or expiry.
type Session struct {
	ID          string        `json:"id"`
	PrincipalID string        `json:"principal_id"`
	Kind        PrincipalKind `json:"kind"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// NewSession creates a session record valid for ttl.
func NewSession(id string, p *Principal, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          id,
		PrincipalID: p.ID,
		Kind:        p.Kind,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// Expired reports whether the session is past its expiry at t.
func (s *Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
