package gate

import "errors"

// Sentinel errors returned by Authorize.
//
// ErrUnauthorized means there is no subject at all (anonymous request or an
// unknown user). ErrForbidden means the subject is known but the action is denied.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
