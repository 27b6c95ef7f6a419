package memutils

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, AlignUp(0, 8))
	require.Equal(t, 8, AlignUp(1, 8))
	require.Equal(t, 8, AlignUp(8, 8))
	require.Equal(t, 16, AlignUp(9, 8))
	require.Equal(t, 13, AlignUp(13, 1))
	require.Equal(t, uintptr(0x1040), AlignUp(uintptr(0x1001), 64))
	require.Equal(t, uint64(4096), AlignUp(uint64(4095), 4096))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 0, AlignDown(7, 8))
	require.Equal(t, 8, AlignDown(15, 8))
	require.Equal(t, 16, AlignDown(16, 8))
	require.Equal(t, uintptr(0x1000), AlignDown(uintptr(0x103F), 64))
}

func TestCheckPow2(t *testing.T) {
	for _, value := range []int{1, 2, 4, 64, 1 << 20} {
		require.NoError(t, CheckPow2(value, "value"))
	}

	for _, value := range []int{0, -1, -8, 3, 12, 100} {
		err := CheckPow2(value, "value")
		require.Error(t, err)
		require.True(t, errors.Is(err, PowerOfTwoError), "value %d", value)
	}

	require.NoError(t, CheckPow2(uint(32), "alignment"))
	require.ErrorContains(t, CheckPow2(uint(0), "alignment"), "alignment is 0")
}
