package strava

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError carries the status and body of a failed Strava API call
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("strava api error (status %d): %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is a 401 from the Strava API.
// Callers treat this as "token invalid despite expiry check" and force
// re-authorization rather than retrying.
func IsUnauthorized(err error) bool {
	return isStatus(err, http.StatusUnauthorized)
}

// IsNotFound reports whether err is a 404 from the Strava API
func IsNotFound(err error) bool {
	return isStatus(err, http.StatusNotFound)
}

// IsTooManyRequests reports whether err is a 429 from the Strava API
func IsTooManyRequests(err error) bool {
	return isStatus(err, http.StatusTooManyRequests)
}

func isStatus(err error, status int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == status
	}
	return false
}
