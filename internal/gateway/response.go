package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Shape tells which wire format a moderation response used.
type Shape int

const (
	ShapeText Shape = iota
	ShapeJSON
	ShapePipe
)

func (s Shape) String() string {
	switch s {
	case ShapeJSON:
		return "json"
	case ShapePipe:
		return "pipe"
	default:
		return "text"
	}
}

// Response is a decoded moderation response. Exactly one of Object and
// Parts is set, according to Shape. Raw always holds the body.
type Response struct {
	Shape  Shape
	Object map[string]any
	Parts  []string
	Raw    string
}

// DecodeResponse tries a JSON object first, then a "||" separated list,
// and falls back to plain text.
func DecodeResponse(raw string) Response {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil && obj != nil {
			return Response{Shape: ShapeJSON, Object: obj, Raw: raw}
		}
	}
	if strings.Contains(raw, "||") {
		return Response{Shape: ShapePipe, Parts: strings.Split(raw, "||"), Raw: raw}
	}
	return Response{Shape: ShapeText, Raw: raw}
}

// Field returns a JSON field as a string. Non string scalars are formatted.
func (r Response) Field(name string) string {
	if r.Object == nil {
		return ""
	}
	switch v := r.Object[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Result is the "result" field of a JSON response.
func (r Response) Result() string { return r.Field("result") }

// Message is the "message" field of a JSON response, or "msg".
func (r Response) Message() string {
	if m := r.Field("message"); m != "" {
		return m
	}
	return r.Field("msg")
}

// Succeeded reports the admin action success shape {"result":"success"}.
func (r Response) Succeeded() bool {
	return r.Shape == ShapeJSON && r.Result() == "success"
}

// Part returns the i-th pipe separated value or "".
func (r Response) Part(i int) string {
	if i < 0 || i >= len(r.Parts) {
		return ""
	}
	return r.Parts[i]
}

// VoteResult is the positional triple returned by the vote endpoint.
type VoteResult struct {
	Result      string
	Counts      string
	FixedCounts string
}

// OK reports whether the vote was accepted.
func (v VoteResult) OK() bool { return v.Result == "true" }

// ParseVote splits a vote response on "||" positionally.
func ParseVote(raw string) VoteResult {
	parts := strings.Split(raw, "||")
	get := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}
	return VoteResult{Result: get(0), Counts: get(1), FixedCounts: get(2)}
}

// CommentDeleteOutcome interprets a comment deletion response. ok is false
// when no response arrived. msg carries the server's reason on failure.
func CommentDeleteOutcome(raw string, ok bool) (success bool, msg string) {
	if !ok {
		return false, ""
	}
	r := DecodeResponse(raw)
	switch r.Shape {
	case ShapeJSON:
		if r.Result() == "fail" {
			return false, r.Field("msg")
		}
		return true, ""
	case ShapePipe:
		if r.Part(0) != "true" {
			return false, r.Part(1)
		}
		return true, ""
	default:
		if strings.TrimSpace(raw) != "true" {
			return false, raw
		}
		return true, ""
	}
}
