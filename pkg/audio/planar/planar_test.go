package planar

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

func TestPlanarize(t *testing.T) {
	in := []float32{0, 10, 1, 11, 2, 12, 3, 13}
	out := make([]float32, len(in))
	require.NoError(t, Planarize(2, out, in))
	require.Equal(t, []float32{0, 1, 2, 3, 10, 11, 12, 13}, out, spew.Sdump(in))
}

func TestUnplanarize(t *testing.T) {
	in := []byte{0, 1, 2, 10, 11, 12, 20, 21, 22}
	out := make([]byte, len(in))
	require.NoError(t, Unplanarize(3, out, in))
	require.Equal(t, []byte{0, 10, 20, 1, 11, 21, 2, 12, 22}, out, spew.Sdump(in))
}

func TestRoundTrip(t *testing.T) {
	in := make([]float64, 4*5)
	for i := range in {
		in[i] = float64(i)
	}
	planar := make([]float64, len(in))
	back := make([]float64, len(in))
	require.NoError(t, Planarize(4, planar, in))
	require.NoError(t, Unplanarize(4, back, planar))
	require.Equal(t, in, back)
}

func TestInvalid(t *testing.T) {
	require.Error(t, Planarize(0, []int{}, []int{}))
	require.Error(t, Planarize(2, make([]int, 3), make([]int, 3)))
	require.Error(t, Unplanarize(2, make([]int, 2), make([]int, 4)))
	require.NoError(t, Planarize(2, []int{}, []int{}))
}
