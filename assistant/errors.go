package assistant

import "fmt"

// ServiceError reports that the assistant service could not be reached, refused the call, or
// answered with something that is not a chat reply.
type ServiceError struct {
	// StatusCode is the HTTP status returned by the service, zero for transport failures.
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("assistant service returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("assistant service call failed: %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
