package sessions

import (
	"github.com/jrsteele09/bogo-finds/internal/utils"
	"golang.org/x/oauth2"
)

// User is the identity carried by a Session.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Phone    string         `json:"phone,omitempty"`
	Metadata map[string]any `json:"user_metadata,omitempty"` // Raw sign-up metadata (name, phone)
}

// Session is the credential bundle issued by the auth provider. The store only
// observes it.
type Session struct {
	User  User          `json:"user"`
	Token *oauth2.Token `json:"-"`
}

// Profile is the display identity derived from a Session.
type Profile struct {
	ID    string  `json:"id"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// DeriveProfile returns nil for a nil session. Name comes from metadata; phone
// prefers the session's own phone over metadata. Empty strings count as absent.
func DeriveProfile(session *Session) *Profile {
	if session == nil {
		return nil
	}
	profile := &Profile{
		ID:   session.User.ID,
		Name: utils.NonEmpty(utils.MetadataString(session.User.Metadata, "name")),
	}
	profile.Phone = utils.NonEmpty(session.User.Phone)
	if profile.Phone == nil {
		profile.Phone = utils.NonEmpty(utils.MetadataString(session.User.Metadata, "phone"))
	}
	return profile
}

// Clone copies the session so the store never shares maps or tokens with the provider.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := &Session{User: s.User}
	clone.User.Metadata = utils.CloneMetadata(s.User.Metadata)
	if s.Token != nil {
		token := *s.Token
		clone.Token = &token
	}
	return clone
}

// Event names the reason for a session change notification.
type Event string

const (
	EventInitialSession   Event = "INITIAL_SESSION"
	EventSignedIn         Event = "SIGNED_IN"
	EventSignedOut        Event = "SIGNED_OUT"
	EventTokenRefreshed   Event = "TOKEN_REFRESHED"
	EventUserUpdated      Event = "USER_UPDATED"
	EventPasswordRecovery Event = "PASSWORD_RECOVERY"
)

// State is a point-in-time snapshot of the store.
// Profile is nil exactly when Session is nil.
type State struct {
	User    *User    `json:"user"`
	Session *Session `json:"-"`
	Profile *Profile `json:"profile"`
	Loading bool     `json:"loading"`
}

func (s State) SignedIn() bool {
	return s.Session != nil
}
