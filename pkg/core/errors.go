package core

import (
	"errors"
	"fmt"
)

var (
	ErrBlobParse    = errors.New("blob parse error")
	ErrTreeParse    = errors.New("tree parse error")
	ErrTypeMismatch = errors.New("object type mismatch")
)

// ParseError reports a malformed decoded object. It matches ErrBlobParse or
// ErrTreeParse depending on Type and unwraps to the underlying cause.
type ParseError struct {
	Type ObjectType
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s parse error: %v", e.Type, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrBlobParse:
		return e.Type == TypeBlob
	case ErrTreeParse:
		return e.Type == TypeTree
	}
	return false
}

func parseErr(t ObjectType, format string, args ...any) error {
	return &ParseError{Type: t, Err: fmt.Errorf(format, args...)}
}
