// Package apperr defines the failure taxonomy shared across capture, recognition, and persistence.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied indicates the OS refused camera or microphone access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDeviceUnavailable indicates no capture device handle exists.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrConfiguration indicates invalid timing durations or missing endpoint configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNetworkFailure indicates a transport error or non-2xx response from a remote endpoint.
	ErrNetworkFailure = errors.New("network failure")
	// ErrAuthenticationRequired indicates an operation needs a signed-in user.
	ErrAuthenticationRequired = errors.New("authentication required")
)

// NetworkError carries the endpoint and response details of a failed remote call.
type NetworkError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
	}
	return e.Endpoint + ": request failed"
}

// Is makes every NetworkError match ErrNetworkFailure.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkFailure
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Configf wraps a formatted message with ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// IsUserBlocking reports whether err should be surfaced as a blocking prompt rather than swallowed.
func IsUserBlocking(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable)
}
