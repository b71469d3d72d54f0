// Package resolve defines the failure type shared by the answer and image
// resolvers. Resolver failures are values, never panics: callers store the
// rendered message as the displayed answer and inspect the kind when they
// need to tell a missing credential from a failed upstream call.
package resolve

import "errors"

// MissingKeyMessage explains the one configuration failure both resolvers
// share. The wording names every place the key may be provided.
const MissingKeyMessage = "API key not found. Set API_KEY in .env, environment, or secrets file."

// Kind classifies a resolver failure.
type Kind string

const (
	// KindConfiguration marks failures before any upstream call was made,
	// typically a missing API key.
	KindConfiguration Kind = "configuration"
	// KindCapability marks failures of the upstream call itself.
	KindCapability Kind = "capability"
)

// Error carries a user-presentable message plus the machine-readable kind.
// Error() returns the message verbatim because it doubles as the displayed
// answer text. The JSON form is what API clients see embedded in outcome
// payloads; the cause stays server-side.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// NewConfiguration builds a configuration-kind failure.
func NewConfiguration(message string, cause error) *Error {
	return &Error{Kind: KindConfiguration, Message: message, Cause: cause}
}

// NewCapability builds a capability-kind failure.
func NewCapability(message string, cause error) *Error {
	return &Error{Kind: KindCapability, Message: message, Cause: cause}
}

// AsError unwraps err into a resolver Error when it is one.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
