package core

import "mgit/pkg/types"

// ObjectType is the type token written in an object header.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

// Object is the common view of every stored object.
type Object interface {
	// Type returns the object type.
	Type() ObjectType

	// ID returns the digest of Bytes().
	ID() types.Hash

	// Bytes returns the canonical encoding (header + payload). This is exactly
	// what gets hashed and exactly what the store compresses to disk.
	Bytes() []byte
}
