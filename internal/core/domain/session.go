package domain

import (
	"slices"
	"time"
)

// Session is the client's current identity. Credential and Identity are
// always set or cleared together.
type Session struct {
	Credential string
	Identity   *UserRecord
	// ProfileFresh is set once the profile was fetched in this session and
	// cleared on login and logout.
	ProfileFresh bool
}

// Authenticated reports whether the session carries an identity.
func (s Session) Authenticated() bool {
	return s.Credential != "" && s.Identity != nil
}

// UserID returns the identity's id, or 0 when logged out.
func (s Session) UserID() int64 {
	if s.Identity == nil {
		return 0
	}
	return s.Identity.ID
}

// Clone returns a copy that does not share the identity with s.
func (s Session) Clone() Session {
	out := s
	if s.Identity != nil {
		u := *s.Identity
		u.Roles = slices.Clone(s.Identity.Roles)
		if s.Identity.OrganizationName != nil {
			org := *s.Identity.OrganizationName
			u.OrganizationName = &org
		}
		out.Identity = &u
	}
	return out
}

// CredentialClaims is the unverified content of an access token.
type CredentialClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the claims carry an expiry before now.
func (c CredentialClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
