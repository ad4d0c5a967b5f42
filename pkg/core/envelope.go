package core

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// encodeEnvelope frames a payload as "type size\0payload".
func encodeEnvelope(t ObjectType, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", t, len(payload))
	out := make([]byte, 0, len(header)+len(payload))
	out = append(out, header...)
	return append(out, payload...)
}

// SplitEnvelope parses the "type size\0" header of a decoded object and
// returns the type token and the payload. The declared size must equal the
// payload length.
func SplitEnvelope(data []byte) (ObjectType, []byte, error) {
	nul := bytes.IndexByte(data, 0)
	if nul < 0 {
		return "", nil, errors.New("missing NUL after header")
	}
	header := string(data[:nul])
	payload := data[nul+1:]

	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("malformed header %q", header)
	}
	size, err := parseSize(parts[1])
	if err != nil {
		return "", nil, err
	}
	if size != len(payload) {
		return "", nil, fmt.Errorf("size mismatch: header=%d, actual=%d", size, len(payload))
	}
	return ObjectType(parts[0]), payload, nil
}

// parseSize accepts only the canonical decimal form: digits, no sign, no
// leading zero unless the size is exactly 0.
func parseSize(tok string) (int, error) {
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, fmt.Errorf("invalid size %q", tok)
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, fmt.Errorf("invalid size %q", tok)
		}
	}
	size, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", tok, err)
	}
	return size, nil
}

// checkType splits the envelope and requires the given type token.
func checkType(data []byte, want ObjectType) ([]byte, error) {
	got, payload, err := SplitEnvelope(data)
	if err != nil {
		return nil, &ParseError{Type: want, Err: err}
	}
	if got != want {
		return nil, &ParseError{Type: want, Err: fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, got, want)}
	}
	return payload, nil
}
