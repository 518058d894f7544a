package chat

import "errors"

// Sentinel errors for each fatal stage of a session. Stage errors wrap one of
// these together with the underlying cause, so callers match with errors.Is.
var (
	ErrUsage     = errors.New("usage error")
	ErrResolve   = errors.New("resolution error")
	ErrSocket    = errors.New("socket creation error")
	ErrConnect   = errors.New("connection error")
	ErrHandshake = errors.New("handshake error")
	ErrSend      = errors.New("send error")
	ErrReceive   = errors.New("receive error")
	ErrInput     = errors.New("input error")
)
