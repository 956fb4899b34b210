package portal

import (
	"errors"

	"github.com/phillip-england/lmsportal/internal/api"
)

// ErrNoSession is matched by every StateError.
var ErrNoSession = errors.New("no active session")

// ValidationError is a client-side rejection raised before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StateError reports an operation attempted without the session it needs.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

func (e *StateError) Is(target error) bool {
	return target == ErrNoSession
}

// Message extracts the user-facing text of any workflow error.
func Message(err error) string {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}
	var stateErr *StateError
	if errors.As(err, &stateErr) {
		return stateErr.Message
	}
	return err.Error()
}
