// pkg/types/common.go
package types

import (
	"errors"
	"fmt"
	"strings"
)

// HexLen is the length of a rendered SHA-1 digest.
const HexLen = 40

// MinPrefixLen is the shortest abbreviated digest accepted for expansion.
const MinPrefixLen = 4

var ErrInvalidFormat = errors.New("invalid object id format")

// Hash is an object identity: 40 lowercase hex characters.
// It is a value object and must stay immutable.
type Hash string

func (h Hash) String() string { return string(h) }

func (h Hash) IsZero() bool  { return h == "" }
func (h Hash) IsValid() bool { return len(h) == HexLen && isHex(string(h)) }

// Short returns the first 7 characters, the way log output abbreviates ids.
func (h Hash) Short() string {
	if len(h) < 7 {
		return string(h)
	}
	return string(h[:7])
}

// ValidateFormat checks an externally supplied id before it gets anywhere
// near the filesystem. Upper and lower case are accepted; the returned Hash
// is always lowercase.
func ValidateFormat(candidate string) (Hash, error) {
	if len(candidate) != HexLen {
		return "", fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidFormat, candidate, len(candidate), HexLen)
	}
	if !isHex(candidate) {
		return "", fmt.Errorf("%w: %q is not hexadecimal", ErrInvalidFormat, candidate)
	}
	return Hash(strings.ToLower(candidate)), nil
}

// HashPrefix is an abbreviated object id typed by a user.
type HashPrefix string

func (p HashPrefix) String() string { return string(p) }

// ValidatePrefix accepts MinPrefixLen..HexLen hex characters.
func ValidatePrefix(candidate string) (HashPrefix, error) {
	if len(candidate) < MinPrefixLen {
		return "", fmt.Errorf("%w: prefix %q too short", ErrInvalidFormat, candidate)
	}
	if len(candidate) > HexLen || !isHex(candidate) {
		return "", fmt.Errorf("%w: prefix %q", ErrInvalidFormat, candidate)
	}
	return HashPrefix(strings.ToLower(candidate)), nil
}

// Repository layout names, relative to the working directory root.
const (
	MetaDir    = ".mgit"
	IgnoreFile = ".mgitignore"
)

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
