package tgtg

import (
	"encoding/json"
	"time"
)

// State is the position of a client in the login flow
type State int

const (
	// StateUnauthenticated means no credentials are held
	StateUnauthenticated State = iota
	// StatePending means a login email was sent and the client is polling
	StatePending
	// StateAuthenticated means credentials are held
	StateAuthenticated
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNAUTHENTICATED"
	}
}

// AuthToken is the credential triple used by authenticated calls
type AuthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
}

// AuthInfo is an AuthToken plus the time the access token was issued
type AuthInfo struct {
	AuthToken
	TokenRefreshTime time.Time `json:"-"`
}

// Session is everything needed to resume a login without re-authenticating
type Session struct {
	AuthInfo
	Cookie string `json:"-"`
}

// sessionJSON is the persisted form. token_refresh_time is Unix milliseconds
// and cookie is null when none is held.
type sessionJSON struct {
	AccessToken      string  `json:"access_token"`
	RefreshToken     string  `json:"refresh_token"`
	UserID           string  `json:"user_id"`
	TokenRefreshTime int64   `json:"token_refresh_time"`
	Cookie           *string `json:"cookie"`
}

// MarshalJSON implements json.Marshaler
func (s Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		AccessToken:      s.AccessToken,
		RefreshToken:     s.RefreshToken,
		UserID:           s.UserID,
		TokenRefreshTime: s.TokenRefreshTime.UnixMilli(),
	}
	if s.Cookie != "" {
		out.Cookie = &s.Cookie
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Session) UnmarshalJSON(data []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.AccessToken = in.AccessToken
	s.RefreshToken = in.RefreshToken
	s.UserID = in.UserID
	s.TokenRefreshTime = time.UnixMilli(in.TokenRefreshTime)
	s.Cookie = ""
	if in.Cookie != nil {
		s.Cookie = *in.Cookie
	}
	return nil
}

// UpdateReason says why a session changed
type UpdateReason string

// Reasons reported in SessionUpdated
const (
	ReasonLogin   UpdateReason = "login"   // email login confirmed
	ReasonSignUp  UpdateReason = "signup"  // account created
	ReasonRefresh UpdateReason = "refresh" // access token refreshed
)

// SessionUpdated is delivered to the observer every time credentials are
// issued or refreshed.
type SessionUpdated struct {
	Session Session
	Reason  UpdateReason
}

// SessionObserver receives session changes. It is called synchronously on the
// goroutine that caused the change, before that call returns.
type SessionObserver interface {
	OnSessionUpdated(event SessionUpdated)
}

// ObserverFunc adapts a function to SessionObserver
type ObserverFunc func(event SessionUpdated)

// OnSessionUpdated calls f(event)
func (f ObserverFunc) OnSessionUpdated(event SessionUpdated) {
	f(event)
}

type nopObserver struct{}

func (nopObserver) OnSessionUpdated(SessionUpdated) {}
