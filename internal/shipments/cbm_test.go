package shipments

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDimensions(t *testing.T) {
	l, w, h, ok := ParseDimensions("30x40x50")
	require.True(t, ok)
	require.Equal(t, 30.0, l)
	require.Equal(t, 40.0, w)
	require.Equal(t, 50.0, h)

	// Case and whitespace tolerated.
	_, _, _, ok = ParseDimensions(" 30 X 40.5 x 50 ")
	require.True(t, ok)

	for _, bad := range []string{"", "30x40", "30x40x50x60", "axbxc", "30x-40x50", "30,40,50"} {
		_, _, _, ok := ParseDimensions(bad)
		require.False(t, ok, "expected %q to be rejected", bad)
	}
}

func TestCBM(t *testing.T) {
	require.InDelta(t, 0.06, CBM("30x40x50"), 1e-9)

	// Malformed dimensions contribute zero, never an error.
	require.Equal(t, 0.0, CBM("not-a-size"))
	require.Equal(t, 0.0, CBM(""))
}
