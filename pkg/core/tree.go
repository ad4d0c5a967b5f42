package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"mgit/pkg/types"
)

const (
	ModeFile = "100644"
	ModeDir  = "40000"
)

// EntryKind is derived from an entry's mode.
type EntryKind string

const (
	KindBlob    EntryKind = "blob"
	KindTree    EntryKind = "tree"
	KindUnknown EntryKind = "unknown"
)

// KindOf classifies a mode string as read from a tree object.
func KindOf(mode string) EntryKind {
	switch {
	case mode == "40000" || mode == "040000":
		return KindTree
	case strings.HasPrefix(mode, "100"):
		return KindBlob
	default:
		return KindUnknown
	}
}

// TreeEntry is one immediate child of a directory. Build entries with
// NewFileEntry or NewDirectoryEntry.
type TreeEntry struct {
	Path string
	Mode string
	Hash types.Hash
	Kind EntryKind
}

// NewFileEntry references a blob.
func NewFileEntry(path string, hash types.Hash) TreeEntry {
	return TreeEntry{Path: path, Mode: ModeFile, Hash: hash, Kind: KindBlob}
}

// NewDirectoryEntry references a sub-tree.
func NewDirectoryEntry(path string, hash types.Hash) TreeEntry {
	return TreeEntry{Path: path, Mode: ModeDir, Hash: hash, Kind: KindTree}
}

func (e TreeEntry) IsDir() bool { return e.Kind == KindTree }

// correctedMode drops the leading zero of a directory mode ("040000" is
// written as "40000"); file modes are written verbatim.
func (e TreeEntry) correctedMode() string {
	return strings.TrimPrefix(e.Mode, "0")
}

type Tree struct {
	hash     types.Hash
	rawBytes []byte
	entries  []TreeEntry
}

// NewTree sorts the entries, serializes them and derives the digest. Paths
// must be unique, non-empty single segments.
func NewTree(entries []TreeEntry) (*Tree, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	SortEntries(sorted)

	for i, e := range sorted {
		if err := validateEntry(e); err != nil {
			return nil, err
		}
		if i > 0 && sorted[i-1].Path == e.Path {
			return nil, fmt.Errorf("duplicate tree entry %q", e.Path)
		}
	}

	raw, err := EncodeTree(sorted)
	if err != nil {
		return nil, err
	}
	return &Tree{
		hash:     DigestOf(raw),
		rawBytes: raw,
		entries:  sorted,
	}, nil
}

// SortEntries orders entries by plain byte-wise comparison of Path,
// regardless of kind. No trailing separator is appended to directory names,
// so "foo" sorts before "foo.txt" and "x" before "x_dir".
func SortEntries(entries []TreeEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}

func validateEntry(e TreeEntry) error {
	switch {
	case e.Path == "" || e.Path == "." || e.Path == "..":
		return fmt.Errorf("invalid tree entry path %q", e.Path)
	case strings.ContainsAny(e.Path, "/\x00"):
		return fmt.Errorf("tree entry path %q must be a single segment", e.Path)
	case e.Mode == "":
		return fmt.Errorf("tree entry %q has no mode", e.Path)
	case !e.Hash.IsValid():
		return fmt.Errorf("tree entry %q: %w: %q", e.Path, types.ErrInvalidFormat, e.Hash)
	}
	return nil
}

// EncodeTree writes entries in the order given:
//
//	"tree <size>\0" then per entry "<mode> <path>\0<20 raw digest bytes>"
//
// where size counts the entry bytes only.
func EncodeTree(entries []TreeEntry) ([]byte, error) {
	var body bytes.Buffer
	for _, e := range entries {
		raw, err := rawDigest(e.Hash)
		if err != nil {
			return nil, fmt.Errorf("encode tree entry %q: %w", e.Path, err)
		}
		body.WriteString(e.correctedMode())
		body.WriteByte(' ')
		body.WriteString(e.Path)
		body.WriteByte(0)
		body.Write(raw)
	}
	return encodeEnvelope(TypeTree, body.Bytes()), nil
}

// DecodeTree parses a tree encoding. Entries keep their stored order. Any
// framing problem is a *ParseError matching ErrTreeParse.
func DecodeTree(data []byte) (*Tree, error) {
	payload, err := checkType(data, TypeTree)
	if err != nil {
		return nil, err
	}

	var entries []TreeEntry
	for pos := 0; pos < len(payload); {
		sp := bytes.IndexByte(payload[pos:], ' ')
		if sp < 0 {
			return nil, parseErr(TypeTree, "entry at offset %d: missing space after mode", pos)
		}
		mode := string(payload[pos : pos+sp])
		pos += sp + 1

		nul := bytes.IndexByte(payload[pos:], 0)
		if nul < 0 {
			return nil, parseErr(TypeTree, "entry %q: missing NUL after path", mode)
		}
		path := string(payload[pos : pos+nul])
		pos += nul + 1

		if len(payload)-pos < RawDigestLen {
			return nil, parseErr(TypeTree, "entry %q: truncated digest (%d bytes left)", path, len(payload)-pos)
		}
		hash := types.Hash(hex.EncodeToString(payload[pos : pos+RawDigestLen]))
		pos += RawDigestLen

		entry := TreeEntry{Path: path, Mode: mode, Hash: hash, Kind: KindOf(mode)}
		if err := validateEntry(entry); err != nil {
			return nil, &ParseError{Type: TypeTree, Err: err}
		}
		entries = append(entries, entry)
	}

	raw := make([]byte, len(data))
	copy(raw, data)
	return &Tree{
		hash:     DigestOf(raw),
		rawBytes: raw,
		entries:  entries,
	}, nil
}

func (t *Tree) Type() ObjectType { return TypeTree }
func (t *Tree) ID() types.Hash   { return t.hash }
func (t *Tree) Bytes() []byte    { return t.rawBytes }

// Entries returns a copy of the entries in serialized order.
func (t *Tree) Entries() []TreeEntry {
	out := make([]TreeEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Lookup finds an immediate entry by path.
func (t *Tree) Lookup(path string) (TreeEntry, bool) {
	for _, e := range t.entries {
		if e.Path == path {
			return e, true
		}
	}
	return TreeEntry{}, false
}
