package pubkey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBase58RoundTrip(t *testing.T) {
	raw := make([]byte, Size)
	for i := range raw {
		raw[i] = byte(i)
	}
	p, err := FromBytes(raw)
	require.NoError(t, err)

	parsed, err := FromBase58(p.String())
	require.NoError(t, err)
	require.Equal(t, p, parsed)
}

func TestFromBytesShort(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestIsZero(t *testing.T) {
	require.True(t, Zero.IsZero())
	p, _ := FromBytes(make([]byte, Size))
	require.True(t, p.IsZero())
}
