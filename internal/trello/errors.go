package trello

import (
	"errors"
	"strings"
)

// ErrNotFound indicates the requested card, board, or list does not exist.
var ErrNotFound = errors.New("trello resource not found")

// ErrUnauthorized indicates the Trello credentials were rejected.
var ErrUnauthorized = errors.New("trello authorization failed")

// ErrRateLimited indicates the Trello API rate limit was hit.
var ErrRateLimited = errors.New("trello rate limit exceeded")

// ErrTransport indicates the MCP server or network failed.
var ErrTransport = errors.New("trello transport failure")

// ErrUnknownTool indicates a tool name outside the supported set.
var ErrUnknownTool = errors.New("unknown trello tool")

// classify maps an error message from the MCP server to a typed failure.
// The raw message is preserved via wrapping.
func classify(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found") || strings.Contains(lower, "404"):
		return wrap(ErrNotFound, msg)
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid token") ||
		strings.Contains(lower, "invalid key") || strings.Contains(lower, "401"):
		return wrap(ErrUnauthorized, msg)
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429"):
		return wrap(ErrRateLimited, msg)
	default:
		return wrap(ErrTransport, msg)
	}
}

func wrap(sentinel error, msg string) error {
	return &classifiedError{sentinel: sentinel, msg: msg}
}

type classifiedError struct {
	sentinel error
	msg      string
}

func (e *classifiedError) Error() string { return e.msg }
func (e *classifiedError) Unwrap() error { return e.sentinel }
