// Package valuenet implements the fixed-topology value network consumed by
// the Controller: input(6) -> dense(64) -> ReLU -> dense(64) -> ReLU ->
// dense(2), no activation on the output. Action index 0 is Submit, 1 is
// Debate.
package valuenet

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// InputDim is the state feature dimension (see internal/encoder).
	InputDim = 6
	// Hidden is the width of both hidden layers.
	Hidden = 64
	// OutputDim is the number of actions (Submit, Debate).
	OutputDim = 2
)

// Network holds the weights and biases of the fixed topology. Biases are
// stored as 1xN row vectors broadcast across the batch dimension.
type Network struct {
	W1, B1 *mat.Dense // InputDim x Hidden, 1 x Hidden
	W2, B2 *mat.Dense // Hidden x Hidden, 1 x Hidden
	W3, B3 *mat.Dense // Hidden x OutputDim, 1 x OutputDim
}

// New builds a Network with He-uniform initialization on the two ReLU
// hidden layers and Glorot-uniform initialization on the output layer, as
// required for policy-checkpoint compatibility.
func New(rng *rand.Rand) *Network {
	return &Network{
		W1: heUniform(InputDim, Hidden, rng),
		B1: mat.NewDense(1, Hidden, nil),
		W2: heUniform(Hidden, Hidden, rng),
		B2: mat.NewDense(1, Hidden, nil),
		W3: glorotUniform(Hidden, OutputDim, rng),
		B3: mat.NewDense(1, OutputDim, nil),
	}
}

func heUniform(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	limit := math.Sqrt(6.0 / float64(fanIn))
	return uniformMatrix(fanIn, fanOut, limit, rng)
}

func glorotUniform(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return uniformMatrix(fanIn, fanOut, limit, rng)
}

func uniformMatrix(rows, cols int, limit float64, rng *rand.Rand) *mat.Dense {
	u := distuv.Uniform{Min: -limit, Max: limit, Src: rng}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = u.Rand()
	}
	return mat.NewDense(rows, cols, data)
}

// Clone returns a deep, independent copy of the network, used to construct
// the Controller's target network and for checkpoint snapshots.
func (n *Network) Clone() *Network {
	return &Network{
		W1: cloneDense(n.W1), B1: cloneDense(n.B1),
		W2: cloneDense(n.W2), B2: cloneDense(n.B2),
		W3: cloneDense(n.W3), B3: cloneDense(n.B3),
	}
}

func cloneDense(m *mat.Dense) *mat.Dense {
	var c mat.Dense
	c.CloneFrom(m)
	return &c
}

// CopyFrom overwrites the receiver's parameters in place with src's,
// without reallocating — used for hard target-network syncs.
func (n *Network) CopyFrom(src *Network) {
	n.W1.Copy(src.W1)
	n.B1.Copy(src.B1)
	n.W2.Copy(src.W2)
	n.B2.Copy(src.B2)
	n.W3.Copy(src.W3)
	n.B3.Copy(src.B3)
}

// GobEncode implements gob.GobEncoder. mat.Dense has no exported fields, so
// each parameter matrix is flattened to a denseBlob before encoding.
func (n *Network) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	blobs := []denseBlob{
		encodeDense(n.W1), encodeDense(n.B1),
		encodeDense(n.W2), encodeDense(n.B2),
		encodeDense(n.W3), encodeDense(n.B3),
	}
	if err := enc.Encode(blobs); err != nil {
		return nil, fmt.Errorf("network: gobencode: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode.
func (n *Network) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))
	var blobs []denseBlob
	if err := dec.Decode(&blobs); err != nil {
		return fmt.Errorf("network: gobdecode: %w", err)
	}
	if len(blobs) != 6 {
		return fmt.Errorf("network: gobdecode: expected 6 matrices, got %d", len(blobs))
	}
	n.W1 = decodeDense(blobs[0])
	n.B1 = decodeDense(blobs[1])
	n.W2 = decodeDense(blobs[2])
	n.B2 = decodeDense(blobs[3])
	n.W3 = decodeDense(blobs[4])
	n.B3 = decodeDense(blobs[5])
	return nil
}

// Cache holds the intermediate activations of a forward pass needed by
// Backward. Rows are batch elements.
type Cache struct {
	X       *mat.Dense // batch x InputDim
	Z1, A1  *mat.Dense // batch x Hidden (pre/post ReLU)
	Z2, A2  *mat.Dense // batch x Hidden (pre/post ReLU)
	Out     *mat.Dense // batch x OutputDim
}

// Forward computes Q-values for a batch of states, returning the output and
// the cache Backward needs.
func (n *Network) Forward(x *mat.Dense) (*mat.Dense, *Cache) {
	rows, _ := x.Dims()

	z1 := new(mat.Dense)
	z1.Mul(x, n.W1)
	addBiasRows(z1, n.B1, rows)
	a1 := new(mat.Dense)
	a1.Apply(reluFn, z1)

	z2 := new(mat.Dense)
	z2.Mul(a1, n.W2)
	addBiasRows(z2, n.B2, rows)
	a2 := new(mat.Dense)
	a2.Apply(reluFn, z2)

	out := new(mat.Dense)
	out.Mul(a2, n.W3)
	addBiasRows(out, n.B3, rows)

	return out, &Cache{X: x, Z1: z1, A1: a1, Z2: z2, A2: a2, Out: out}
}

// Gradients holds the partial derivatives of the loss with respect to every
// parameter, matching the shape of the parameters themselves.
type Gradients struct {
	DW1, DB1 *mat.Dense
	DW2, DB2 *mat.Dense
	DW3, DB3 *mat.Dense
}

// Backward computes parameter gradients given dOut, the gradient of the
// loss with respect to the network's output (batch x OutputDim).
func (n *Network) Backward(cache *Cache, dOut *mat.Dense) *Gradients {
	dW3 := new(mat.Dense)
	dW3.Mul(cache.A2.T(), dOut)
	dB3 := sumRows(dOut)

	dA2 := new(mat.Dense)
	dA2.Mul(dOut, n.W3.T())
	dZ2 := new(mat.Dense)
	dZ2.MulElem(dA2, reluGrad(cache.Z2))

	dW2 := new(mat.Dense)
	dW2.Mul(cache.A1.T(), dZ2)
	dB2 := sumRows(dZ2)

	dA1 := new(mat.Dense)
	dA1.Mul(dZ2, n.W2.T())
	dZ1 := new(mat.Dense)
	dZ1.MulElem(dA1, reluGrad(cache.Z1))

	dW1 := new(mat.Dense)
	dW1.Mul(cache.X.T(), dZ1)
	dB1 := sumRows(dZ1)

	return &Gradients{DW1: dW1, DB1: dB1, DW2: dW2, DB2: dB2, DW3: dW3, DB3: dB3}
}

func reluFn(_, _ int, v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func reluGrad(z *mat.Dense) *mat.Dense {
	g := new(mat.Dense)
	g.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return 1
		}
		return 0
	}, z)
	return g
}

// addBiasRows adds the 1xN bias row to every row of m in place.
func addBiasRows(m *mat.Dense, bias *mat.Dense, rows int) {
	_, cols := m.Dims()
	biasData := bias.RawRowView(0)
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		for c := 0; c < cols; c++ {
			row[c] += biasData[c]
		}
	}
}

// sumRows sums a batch x N matrix down to a 1xN row vector, matching the
// shape bias gradients need.
func sumRows(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(1, cols, nil)
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		outRow := out.RawRowView(0)
		for c := 0; c < cols; c++ {
			outRow[c] += row[c]
		}
	}
	return out
}
