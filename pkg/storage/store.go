package storage

import (
	"context"
	"errors"
	"fmt"

	"mgit/pkg/core"
	"mgit/pkg/types"
)

var (
	ErrNotFound      = errors.New("object not found")
	ErrAmbiguousHash = errors.New("ambiguous object id prefix")
	ErrDecompression = errors.New("corrupt compressed object")
	ErrWritingFile   = errors.New("error writing object")
	ErrAlreadyExists = errors.New("object already exists")
)

// WritePolicy decides what Put does when the digest is already stored.
type WritePolicy string

const (
	// PolicySkip treats a repeated write as a no-op. Same digest means same
	// bytes, so nothing is lost.
	PolicySkip WritePolicy = "skip"
	// PolicyStrict makes objects write-once: a repeated write fails with
	// ErrWritingFile wrapping ErrAlreadyExists.
	PolicyStrict WritePolicy = "strict"
)

func ParseWritePolicy(s string) (WritePolicy, error) {
	switch WritePolicy(s) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown write policy %q (want %q or %q)", s, PolicySkip, PolicyStrict)
	}
}

// AlreadyExists builds the error a strict store returns for a repeated write.
func AlreadyExists(hash types.Hash) error {
	return fmt.Errorf("%w: %s: %w", ErrWritingFile, hash, ErrAlreadyExists)
}

// Store defines the interface for a storage backend.
// Implementations hold compressed object encodings keyed by digest.
type Store interface {
	// Put persists the object's canonical bytes under its digest.
	Put(ctx context.Context, obj core.Object) error

	// Get returns the decompressed encoding (header + payload). Objects are
	// always materialized fully in memory.
	Get(ctx context.Context, hash types.Hash) ([]byte, error)

	// Has reports whether the digest is stored.
	Has(ctx context.Context, hash types.Hash) (bool, error)

	// ExpandHash resolves an abbreviated id to the single matching digest.
	ExpandHash(ctx context.Context, prefix types.HashPrefix) (types.Hash, error)
}

// ShardKey splits a digest into its fan-out directory and file name.
// Example: "aabbcc..." -> ("aa", "bbcc...")
func ShardKey(hash types.Hash) (string, string) {
	s := string(hash)
	if len(s) < 2 {
		return "", s
	}
	return s[:2], s[2:]
}
