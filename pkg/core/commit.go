package core

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"mgit/pkg/types"
)

// Identity is the name/email pair written on author and committer lines.
type Identity struct {
	Name  string
	Email string
}

func (id Identity) validate() error {
	if id.Name == "" || id.Email == "" {
		return fmt.Errorf("identity requires both name and email, got %q <%q>", id.Name, id.Email)
	}
	if strings.ContainsAny(id.Name+id.Email, "<>\n") {
		return fmt.Errorf("identity %q <%q> contains reserved characters", id.Name, id.Email)
	}
	return nil
}

// Commit is a snapshot: a tree, an optional parent, authorship and a message.
// Only the encode path exists; commits are never decoded field by field.
type Commit struct {
	hash     types.Hash
	rawBytes []byte

	tree      types.Hash
	parent    types.Hash
	author    Identity
	committer Identity
	timestamp int64
	tzOffset  string
	message   string
}

// NewCommit captures the timestamp from now exactly once. parent may be
// empty for a root commit. The same identity is used for author and
// committer.
func NewCommit(tree, parent types.Hash, who Identity, message string, now time.Time) (*Commit, error) {
	if !tree.IsValid() {
		return nil, fmt.Errorf("commit tree: %w: %q", types.ErrInvalidFormat, tree)
	}
	if !parent.IsZero() && !parent.IsValid() {
		return nil, fmt.Errorf("commit parent: %w: %q", types.ErrInvalidFormat, parent)
	}
	if err := who.validate(); err != nil {
		return nil, err
	}

	c := &Commit{
		tree:      tree,
		parent:    parent,
		author:    who,
		committer: who,
		timestamp: now.Unix(),
		tzOffset:  now.Format("-0700"),
		message:   message,
	}
	c.rawBytes = encodeEnvelope(TypeCommit, c.body())
	c.hash = DigestOf(c.rawBytes)
	return c, nil
}

// body renders:
//
//	tree <digest>
//	parent <digest>      (only when present)
//	author <name> <<email>> <unix> <offset>
//	committer <name> <<email>> <unix> <offset>
//
//	<message>
func (c *Commit) body() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.tree)
	if !c.parent.IsZero() {
		fmt.Fprintf(&buf, "parent %s\n", c.parent)
	}
	fmt.Fprintf(&buf, "author %s\n", c.signature(c.author))
	fmt.Fprintf(&buf, "committer %s\n", c.signature(c.committer))
	buf.WriteByte('\n')
	buf.WriteString(c.message)
	buf.WriteByte('\n')
	return buf.Bytes()
}

func (c *Commit) signature(id Identity) string {
	return fmt.Sprintf("%s <%s> %d %s", id.Name, id.Email, c.timestamp, c.tzOffset)
}

func (c *Commit) Type() ObjectType { return TypeCommit }
func (c *Commit) ID() types.Hash   { return c.hash }
func (c *Commit) Bytes() []byte    { return c.rawBytes }

func (c *Commit) TreeHash() types.Hash   { return c.tree }
func (c *Commit) ParentHash() types.Hash { return c.parent }
func (c *Commit) Author() Identity       { return c.author }
func (c *Commit) Committer() Identity    { return c.committer }
func (c *Commit) Timestamp() int64       { return c.timestamp }
func (c *Commit) TZOffset() string       { return c.tzOffset }
func (c *Commit) Message() string        { return c.message }
func (c *Commit) IsRoot() bool           { return c.parent.IsZero() }
