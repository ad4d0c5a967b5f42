package core

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"

	"mgit/pkg/types"
)

// RawDigestLen is the binary size of a digest inside a tree entry.
const RawDigestLen = sha1.Size

// DigestOf hashes the exact byte sequence given and renders it as lowercase
// hex. For stored objects the input is always the header-inclusive encoding.
func DigestOf(data []byte) types.Hash {
	sum := sha1.Sum(data)
	return types.Hash(hex.EncodeToString(sum[:]))
}

// rawDigest decodes a 40-char id into its 20 raw bytes.
func rawDigest(h types.Hash) ([]byte, error) {
	if !h.IsValid() {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidFormat, h)
	}
	return hex.DecodeString(string(h))
}
