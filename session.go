package newsroom

import "sync/atomic"

// Session provides the bearer token for authorized calls and is told when
// the server rejects it.
type Session interface {
	// CurrentToken returns the bearer token, or false when signed out.
	CurrentToken() (string, bool)

	// OnUnauthorized is called on a 401 response: the session expired.
	OnUnauthorized()

	// OnPendingApproval is called on a 403 response: the account is not yet
	// approved for use.
	OnPendingApproval()
}

// StaticSession is a Session with a fixed token. Rejections are recorded so
// callers can inspect them afterwards.
type StaticSession struct {
	token           string
	unauthorized    atomic.Bool
	pendingApproval atomic.Bool
}

// NewStaticSession creates a session that always presents token.
func NewStaticSession(token string) *StaticSession {
	return &StaticSession{token: token}
}

// CurrentToken implements Session.
func (s *StaticSession) CurrentToken() (string, bool) {
	return s.token, s.token != ""
}

// OnUnauthorized implements Session.
func (s *StaticSession) OnUnauthorized() {
	s.unauthorized.Store(true)
}

// OnPendingApproval implements Session.
func (s *StaticSession) OnPendingApproval() {
	s.pendingApproval.Store(true)
}

// Unauthorized reports whether the server rejected the token.
func (s *StaticSession) Unauthorized() bool {
	return s.unauthorized.Load()
}

// PendingApproval reports whether the server refused an unapproved account.
func (s *StaticSession) PendingApproval() bool {
	return s.pendingApproval.Load()
}
