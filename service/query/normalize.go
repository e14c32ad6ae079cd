package query

import (
	"fmt"

	"github.com/tidwall/gjson"

	"tds-relay/assistant"
)

// Normalize turns the content of an assistant reply into a Response. String content has to be JSON
// text, either way the decoded value must be an object with a string answer and a list of links
// that each have a string url. Nothing is trimmed or rewritten.
func Normalize(content assistant.Content) (*Response, error) {
	raw, structured := content.Structured()
	if !structured {
		raw = []byte(content.Text())
	}
	if !gjson.ValidBytes(raw) {
		return nil, &MalformedReplyError{Reason: "reply content is not valid JSON"}
	}

	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, &MalformedReplyError{Reason: "reply content is not a JSON object"}
	}

	answer := field(root, "answer")
	if !answer.Exists() {
		return nil, &MalformedReplyError{Reason: "missing answer"}
	}
	if answer.Type != gjson.String {
		return nil, &MalformedReplyError{Reason: fmt.Sprintf("answer is %s, not a string", typeName(answer))}
	}

	links := field(root, "links")
	if !links.Exists() {
		return nil, &MalformedReplyError{Reason: "missing links"}
	}
	if !links.IsArray() {
		return nil, &MalformedReplyError{Reason: fmt.Sprintf("links is %s, not a list", typeName(links))}
	}

	response := &Response{
		Answer: answer.String(),
		Links:  make([]Link, 0),
	}
	for i, link := range links.Array() {
		if !link.IsObject() {
			return nil, &MalformedReplyError{Reason: fmt.Sprintf("link %d is %s, not an object", i, typeName(link))}
		}
		u := field(link, "url")
		if u.Type != gjson.String {
			return nil, &MalformedReplyError{Reason: fmt.Sprintf("link %d has no string url", i)}
		}
		response.Links = append(response.Links, Link{URL: u.String()})
	}

	return response, nil
}

// field looks key up in obj the way encoding/json does: keys are compared after unescaping and the
// last duplicate wins.
func field(obj gjson.Result, key string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			found = v
		}
		return true
	})
	return found
}

func typeName(r gjson.Result) string {
	switch {
	case r.IsObject():
		return "an object"
	case r.IsArray():
		return "a list"
	}
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "a boolean"
	case gjson.Number:
		return "a number"
	case gjson.String:
		return "a string"
	}
	return "missing"
}
