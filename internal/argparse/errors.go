package argparse

import (
	"errors"
	"strings"
)

var (
	// ErrAborted marks a parse that stopped on a usage error or a help request.
	ErrAborted = errors.New("argparse: parse aborted")
	// ErrFrozen is returned by Define once the parser has been used.
	ErrFrozen = errors.New("argparse: parser is frozen")
	// ErrBadDeclaration is wrapped by every declaration error.
	ErrBadDeclaration = errors.New("argparse: bad declaration")
)

// AbortError carries the formatted, user-facing text of an aborted parse.
type AbortError struct {
	Prog    string
	Message string
	// Help is true when the abort came from -h/--help.
	Help bool
}

func (e *AbortError) Error() string {
	if e == nil {
		return ErrAborted.Error()
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return ErrAborted.Error()
	}
	return msg
}

func (e *AbortError) Is(target error) bool {
	return target == ErrAborted
}
