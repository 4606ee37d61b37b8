package domain

import "time"

// Session is the authenticated identity carried through every request.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Owns reports whether the session user created the listing.
func (s *Session) Owns(l Listing) bool {
	return s != nil && l != nil && s.UserID != "" && l.Base().OwnerID == s.UserID
}
