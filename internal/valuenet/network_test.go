package valuenet

import (
	"bytes"
	"encoding/gob"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewInitializesExpectedShapes(t *testing.T) {
	n := New(rand.New(rand.NewSource(1)))

	r, c := n.W1.Dims()
	assert.Equal(t, InputDim, r)
	assert.Equal(t, Hidden, c)

	r, c = n.W2.Dims()
	assert.Equal(t, Hidden, r)
	assert.Equal(t, Hidden, c)

	r, c = n.W3.Dims()
	assert.Equal(t, Hidden, r)
	assert.Equal(t, OutputDim, c)

	r, c = n.B1.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, Hidden, c)
}

func TestNewBiasesAreZero(t *testing.T) {
	n := New(rand.New(rand.NewSource(1)))
	for _, b := range []*mat.Dense{n.B1, n.B2, n.B3} {
		_, cols := b.Dims()
		for c := 0; c < cols; c++ {
			assert.Equal(t, 0.0, b.At(0, c))
		}
	}
}

func TestHeUniformWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	w := heUniform(InputDim, Hidden, rng)
	limitSq := 6.0 / float64(InputDim)
	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := w.At(i, j)
			assert.LessOrEqual(t, v*v, limitSq+1e-9)
		}
	}
}

func TestForwardOutputShape(t *testing.T) {
	n := New(rand.New(rand.NewSource(3)))
	x := mat.NewDense(4, InputDim, make([]float64, 4*InputDim))
	out, cache := n.Forward(x)

	r, c := out.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, OutputDim, c)
	require.NotNil(t, cache)
	require.NotNil(t, cache.A1)
	require.NotNil(t, cache.A2)
}

func TestForwardReLUClampsNegatives(t *testing.T) {
	n := New(rand.New(rand.NewSource(4)))
	x := mat.NewDense(1, InputDim, make([]float64, InputDim))
	_, cache := n.Forward(x)

	_, cols := cache.A1.Dims()
	for c := 0; c < cols; c++ {
		assert.GreaterOrEqual(t, cache.A1.At(0, c), 0.0)
	}
}

func TestBackwardProducesMatchingShapes(t *testing.T) {
	n := New(rand.New(rand.NewSource(5)))
	x := mat.NewDense(2, InputDim, make([]float64, 2*InputDim))
	_, cache := n.Forward(x)

	dOut := mat.NewDense(2, OutputDim, []float64{1, 0, 0, 1})
	grads := n.Backward(cache, dOut)

	assertSameDims(t, n.W1, grads.DW1)
	assertSameDims(t, n.B1, grads.DB1)
	assertSameDims(t, n.W2, grads.DW2)
	assertSameDims(t, n.B2, grads.DB2)
	assertSameDims(t, n.W3, grads.DW3)
	assertSameDims(t, n.B3, grads.DB3)
}

func assertSameDims(t *testing.T, a, b *mat.Dense) {
	t.Helper()
	ar, ac := a.Dims()
	br, bc := b.Dims()
	assert.Equal(t, ar, br)
	assert.Equal(t, ac, bc)
}

func TestCloneIsIndependentCopy(t *testing.T) {
	n := New(rand.New(rand.NewSource(6)))
	clone := n.Clone()

	clone.W1.Set(0, 0, 999)
	assert.NotEqual(t, n.W1.At(0, 0), clone.W1.At(0, 0))
}

func TestCopyFromOverwritesInPlace(t *testing.T) {
	a := New(rand.New(rand.NewSource(7)))
	b := New(rand.New(rand.NewSource(8)))
	require.NotEqual(t, a.W1.At(0, 0), b.W1.At(0, 0))

	b.CopyFrom(a)
	assert.Equal(t, a.W1.At(0, 0), b.W1.At(0, 0))
	assert.Equal(t, a.W3.At(0, 0), b.W3.At(0, 0))
}

func TestNetworkGobRoundTripPreservesParameters(t *testing.T) {
	n := New(rand.New(rand.NewSource(9)))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(n))

	var decoded Network
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))

	assert.Equal(t, n.W1.At(0, 0), decoded.W1.At(0, 0))
	assert.Equal(t, n.W2.At(3, 3), decoded.W2.At(3, 3))
	assert.Equal(t, n.W3.At(0, 1), decoded.W3.At(0, 1))

	rW1, cW1 := decoded.W1.Dims()
	assert.Equal(t, InputDim, rW1)
	assert.Equal(t, Hidden, cW1)
}
