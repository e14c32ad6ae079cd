package query

import (
	"encoding/json"
	"errors"
)

// RequestPayload is the body accepted by the query endpoint. Question is a pointer so that a missing
// field can be told apart from an empty one, only the former is rejected.
type RequestPayload struct {
	Question *string `json:"question" binding:"required"`
	Image    *string `json:"image"`
}

// Query is a validated question, with an optional base64 encoded image.
type Query struct {
	Question string
	Image    string
}

type Link struct {
	URL string `json:"url"`
}

// Response is the only shape the chat client depends on.
type Response struct {
	Answer string `json:"answer"`
	Links  []Link `json:"links"`
}

// ErrorBody is returned for every failed request.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// Query checks the payload and returns the question it carries.
func (p RequestPayload) Query() (Query, error) {
	if p.Question == nil {
		return Query{}, &ValidationError{Err: errors.New("field required: question")}
	}
	q := Query{Question: *p.Question}
	if p.Image != nil {
		q.Image = *p.Image
	}
	return q, nil
}

// ParseRequest decodes a raw request body into a Query.
func ParseRequest(body []byte) (Query, error) {
	var payload RequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Query{}, &ValidationError{Err: err}
	}
	return payload.Query()
}
