package query

import (
	"errors"
	"fmt"
	"net/http"

	"tds-relay/assistant"
)

// ValidationError means the caller sent a request that does not describe a question.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// MalformedReplyError means the assistant answered, but not with an {answer, links} object.
type MalformedReplyError struct {
	Reason string
	Err    error
}

func (e *MalformedReplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed assistant reply: %s: %v", e.Reason, e.Err)
	}
	return "malformed assistant reply: " + e.Reason
}

func (e *MalformedReplyError) Unwrap() error {
	return e.Err
}

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindService
	KindMalformedReply
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindService:
		return "service"
	case KindMalformedReply:
		return "malformed_reply"
	default:
		return "unknown"
	}
}

// KindOf classifies an error returned from the relay.
func KindOf(err error) Kind {
	var validationErr *ValidationError
	var serviceErr *assistant.ServiceError
	var malformedErr *MalformedReplyError
	switch {
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &serviceErr):
		return KindService
	case errors.As(err, &malformedErr):
		return KindMalformedReply
	default:
		return KindUnknown
	}
}

// StatusCode maps an error onto the HTTP status reported to the client. Only validation failures are
// the caller's fault, everything else is a server error.
func StatusCode(err error) int {
	if KindOf(err) == KindValidation {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Failure builds the error body for err.
func Failure(err error) ErrorBody {
	if KindOf(err) == KindValidation {
		return ErrorBody{Detail: err.Error()}
	}
	return ErrorBody{Detail: "Error processing query: " + err.Error()}
}
