package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		input Hash
		want  bool
	}{
		{
			name:  "Valid Hash (40 chars)",
			input: Hash(strings.Repeat("a", 40)),
			want:  true,
		},
		{
			name:  "Too Short",
			input: Hash("abc"),
			want:  false,
		},
		{
			name:  "Empty",
			input: Hash(""),
			want:  false,
		},
		{
			name:  "Too Long",
			input: Hash(strings.Repeat("a", 41)),
			want:  false,
		},
		{
			name:  "Not hex",
			input: Hash(strings.Repeat("g", 40)),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.IsValid())
		})
	}
}

func TestValidateFormat(t *testing.T) {
	lower := "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"

	tests := []struct {
		name    string
		input   string
		want    Hash
		wantErr bool
	}{
		{"lowercase", lower, Hash(lower), false},
		{"uppercase", strings.ToUpper(lower), Hash(lower), false},
		{"mixed case", "2AAE6c35c94fcfb415dbe95f408b9ce91ee846ED", Hash(lower), false},
		{"too short", lower[:39], "", true},
		{"too long", lower + "0", "", true},
		{"empty", "", "", true},
		{"non hex", "zaae6c35c94fcfb415dbe95f408b9ce91ee846ed", "", true},
		{"path injection", "../../../../etc/passwd/0000000000000000000", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFormat(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePrefix(t *testing.T) {
	p, err := ValidatePrefix("ABCD")
	require.NoError(t, err)
	assert.Equal(t, HashPrefix("abcd"), p)

	_, err = ValidatePrefix("abc")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = ValidatePrefix("abcx")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = ValidatePrefix(strings.Repeat("a", 41))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestHash_String(t *testing.T) {
	s := "aabbcc"
	h := Hash(s)
	assert.Equal(t, s, h.String())
	assert.False(t, h.IsZero())
	assert.Equal(t, "aabbcc", h.Short())

	long := Hash("2aae6c35c94fcfb415dbe95f408b9ce91ee846ed")
	assert.Equal(t, "2aae6c3", long.Short())

	var zero Hash
	assert.True(t, zero.IsZero())
}

func TestHashPrefix_String(t *testing.T) {
	p := HashPrefix("aa")
	assert.Equal(t, "aa", p.String())
}
