package broker

import (
	"errors"
	"strings"
)

var (
	ErrAuthExpired      = errors.New("credentials expired")
	ErrTransport        = errors.New("transport error")
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrOrderRejected    = errors.New("order rejected")
	ErrDataUnavailable  = errors.New("historical data unavailable")
)

// Markers the KIS gateway uses for an expired access token.
var authExpiredMarkers = []string{"EGW00123", "만료된 token"}

// IsAuthExpired reports whether err signals that the session must be
// refreshed before retrying.
func IsAuthExpired(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthExpired) {
		return true
	}
	msg := err.Error()
	for _, m := range authExpiredMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
