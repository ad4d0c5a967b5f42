package core

import "mgit/pkg/types"

// Blob is raw file content. Its digest is always computed over the full
// encoding, never over the content alone.
type Blob struct {
	hash     types.Hash
	rawBytes []byte
	content  []byte
}

// NewBlob encodes content and derives the digest.
func NewBlob(content []byte) *Blob {
	raw := EncodeBlob(content)
	return &Blob{
		hash:     DigestOf(raw),
		rawBytes: raw,
		content:  raw[len(raw)-len(content):],
	}
}

// EncodeBlob produces "blob <len>\0<content>".
func EncodeBlob(content []byte) []byte {
	return encodeEnvelope(TypeBlob, content)
}

// DecodeBlob rehydrates a blob from its encoding. Any framing problem is a
// *ParseError matching ErrBlobParse.
func DecodeBlob(data []byte) (*Blob, error) {
	payload, err := checkType(data, TypeBlob)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return &Blob{
		hash:     DigestOf(raw),
		rawBytes: raw,
		content:  raw[len(raw)-len(payload):],
	}, nil
}

func (b *Blob) Type() ObjectType { return TypeBlob }
func (b *Blob) ID() types.Hash   { return b.hash }
func (b *Blob) Bytes() []byte    { return b.rawBytes }
func (b *Blob) Content() []byte  { return b.content }
func (b *Blob) Size() int64      { return int64(len(b.content)) }
