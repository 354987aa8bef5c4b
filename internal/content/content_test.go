package content

import (
	"strings"
	"testing"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/stretchr/testify/require"
)

func TestEncodePadsWithZeros(t *testing.T) {
	b, err := Encode("hi")
	require.NoError(t, err)
	want := Buffer{0x68, 0x69}
	require.Equal(t, want, b)
	for i := 2; i < Size; i++ {
		require.Zero(t, b[i], "byte %d", i)
	}
}

func TestEncodeBoundaries(t *testing.T) {
	empty, err := Encode("")
	require.NoError(t, err)
	require.Equal(t, Buffer{}, empty)

	full := strings.Repeat("x", Size)
	b, err := Encode(full)
	require.NoError(t, err)
	require.Equal(t, full, string(b[:]))

	_, err = Encode(full + "y")
	require.ErrorIs(t, err, fault.ErrContentTooLarge)
}

func TestEncodeCountsBytesNotRunes(t *testing.T) {
	// 11 runes, 33 bytes
	s := strings.Repeat("€", 11)
	_, err := Encode(s)
	require.ErrorIs(t, err, fault.ErrContentTooLarge)

	b, err := Encode(strings.Repeat("€", 10))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("€", 10), Decode(b))
}

func TestDecode(t *testing.T) {
	b, err := Encode("updated sample content")
	require.NoError(t, err)
	require.Equal(t, "updated sample content", Decode(b))
	require.Equal(t, "updated sample content", b.String())
	require.Equal(t, "", Decode(Buffer{}))
}
