package identitysdk

import "fmt"

// APIError is returned whenever the service answers with a non-2xx status.
type APIError struct {
	StatusCode       int
	Code             string
	ErrorDescription string
}

func (e *APIError) Error() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("identity: %s (%d): %s", e.Code, e.StatusCode, e.ErrorDescription)
	}
	return fmt.Sprintf("identity: %s (%d)", e.Code, e.StatusCode)
}
