package kis

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/dca/broker"
)

// codeTokenExpired is the gateway's msg_cd for an expired access token.
const codeTokenExpired = "EGW00123"

// APIError is a non-success reply from the gateway.
type APIError struct {
	Status  int
	Code    string // msg_cd or error_code
	Message string // msg1 or error_description
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s %s", e.Status, e.Code, e.Message)
}

// Expired reports whether the reply means the token must be reissued.
func (e *APIError) Expired() bool {
	return e.Code == codeTokenExpired || strings.Contains(e.Message, "만료된 token")
}

func (e *APIError) Unwrap() error {
	if e.Expired() {
		return broker.ErrAuthExpired
	}
	return nil
}
