package connector

import "errors"

var (
	// ErrAuthenticationRequired is returned by FetchData when the connector is
	// not authenticated and re-authentication failed.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrNoData is returned by CalculateEmissions before any successful fetch.
	ErrNoData = errors.New("no data available")

	// ErrMissingCredentials marks a configuration error: a required credential
	// field is absent or blank.
	ErrMissingCredentials = errors.New("missing required credentials")

	// ErrInvalidCredentials marks credentials the provider rejected. Unlike
	// transport failures, retrying with the same credentials will not help.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IsRetryable reports whether a failure may succeed when retried unchanged.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrMissingCredentials) && !errors.Is(err, ErrInvalidCredentials)
}
