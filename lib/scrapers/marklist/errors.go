package marklist

import (
	"errors"
	"fmt"
)

var ErrLoginFailed = fmt.Errorf("Failed to login to your account.")

// ErrSessionExpired means a response no longer carries the picker page
// marker. The server has dropped the postback state for this session;
// nothing short of logging in again will recover it.
var ErrSessionExpired = errors.New("session expired")

var ErrNoOptions = errors.New("no valid options")

// TransportError is a response with an unexpected status code, after
// the transport-level retries have been exhausted.
type TransportError struct {
	URL    string
	Status int
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Status, e.URL)
}
