package collection

import (
	"math"
	"testing"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/stretchr/testify/require"
)

func TestNewStartsAtZero(t *testing.T) {
	a, err := identity.NewAddress()
	require.NoError(t, err)
	c := New(a)
	require.Equal(t, a, c.Authority)
	require.Zero(t, c.Count)
}

func TestIncrementDecrement(t *testing.T) {
	c := New(identity.Zero)
	require.NoError(t, c.Increment())
	require.NoError(t, c.Increment())
	require.Equal(t, uint64(2), c.Count)
	require.NoError(t, c.Decrement())
	require.NoError(t, c.Decrement())
	require.Zero(t, c.Count)
}

func TestDecrementUnderflow(t *testing.T) {
	c := New(identity.Zero)
	require.ErrorIs(t, c.Decrement(), fault.ErrCounterUnderflow)
	require.Zero(t, c.Count)
}

func TestIncrementOverflow(t *testing.T) {
	c := &Collection{Count: math.MaxUint64}
	require.ErrorIs(t, c.Increment(), fault.ErrCounterOverflow)
	require.Equal(t, uint64(math.MaxUint64), c.Count)
}

func TestBinaryLayout(t *testing.T) {
	a, err := identity.NewAddress()
	require.NoError(t, err)
	c := &Collection{Authority: a, Count: 0x0102}

	b, err := c.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 48)
	require.Equal(t, Discriminator[:], b[:8])
	require.Equal(t, a[:], b[8:40])
	// little endian count
	require.Equal(t, byte(0x02), b[40])
	require.Equal(t, byte(0x01), b[41])

	var got Collection
	require.NoError(t, got.UnmarshalBinary(b))
	require.Equal(t, *c, got)
}

func TestUnmarshalRejectsBadRecords(t *testing.T) {
	var c Collection
	require.ErrorIs(t, c.UnmarshalBinary(make([]byte, 47)), fault.ErrInvalidLayout)
	require.ErrorIs(t, c.UnmarshalBinary(make([]byte, RecordSize)), fault.ErrWrongRecordKind)
}
