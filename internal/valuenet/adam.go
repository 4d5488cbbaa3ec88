package valuenet

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Adam is a per-parameter Adam optimizer state, one moment pair per network
// parameter matrix.
type Adam struct {
	LR      float64
	Beta1   float64
	Beta2   float64
	Epsilon float64

	Step int

	// Moment estimates. Round-trip through GobEncode/GobDecode, not
	// automatic struct gob encoding: mat.Dense has no exported fields.
	MW1, VW1, MB1, VB1 *mat.Dense
	MW2, VW2, MB2, VB2 *mat.Dense
	MW3, VW3, MB3, VB3 *mat.Dense
}

// NewAdam builds an Adam optimizer sized to net, with the conventional
// defaults for beta1/beta2/epsilon.
func NewAdam(net *Network, lr float64) *Adam {
	zeroLike := func(m *mat.Dense) *mat.Dense {
		r, c := m.Dims()
		return mat.NewDense(r, c, nil)
	}
	return &Adam{
		LR: lr, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8,
		MW1: zeroLike(net.W1), VW1: zeroLike(net.W1),
		MB1: zeroLike(net.B1), VB1: zeroLike(net.B1),
		MW2: zeroLike(net.W2), VW2: zeroLike(net.W2),
		MB2: zeroLike(net.B2), VB2: zeroLike(net.B2),
		MW3: zeroLike(net.W3), VW3: zeroLike(net.W3),
		MB3: zeroLike(net.B3), VB3: zeroLike(net.B3),
	}
}

// adamBlob is the gob-friendly representation of an Adam's scalar fields
// plus its twelve moment matrices, flattened via denseBlob for the same
// reason Network does.
type adamBlob struct {
	LR, Beta1, Beta2, Epsilon float64
	Step                      int
	Moments                   []denseBlob
}

// GobEncode implements gob.GobEncoder.
func (a *Adam) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	blob := adamBlob{
		LR: a.LR, Beta1: a.Beta1, Beta2: a.Beta2, Epsilon: a.Epsilon, Step: a.Step,
		Moments: []denseBlob{
			encodeDense(a.MW1), encodeDense(a.VW1), encodeDense(a.MB1), encodeDense(a.VB1),
			encodeDense(a.MW2), encodeDense(a.VW2), encodeDense(a.MB2), encodeDense(a.VB2),
			encodeDense(a.MW3), encodeDense(a.VW3), encodeDense(a.MB3), encodeDense(a.VB3),
		},
	}
	if err := gob.NewEncoder(&buf).Encode(blob); err != nil {
		return nil, fmt.Errorf("adam: gobencode: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, the inverse of GobEncode.
func (a *Adam) GobDecode(in []byte) error {
	var blob adamBlob
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&blob); err != nil {
		return fmt.Errorf("adam: gobdecode: %w", err)
	}
	if len(blob.Moments) != 12 {
		return fmt.Errorf("adam: gobdecode: expected 12 moment matrices, got %d", len(blob.Moments))
	}
	a.LR, a.Beta1, a.Beta2, a.Epsilon, a.Step = blob.LR, blob.Beta1, blob.Beta2, blob.Epsilon, blob.Step
	m := blob.Moments
	a.MW1, a.VW1, a.MB1, a.VB1 = decodeDense(m[0]), decodeDense(m[1]), decodeDense(m[2]), decodeDense(m[3])
	a.MW2, a.VW2, a.MB2, a.VB2 = decodeDense(m[4]), decodeDense(m[5]), decodeDense(m[6]), decodeDense(m[7])
	a.MW3, a.VW3, a.MB3, a.VB3 = decodeDense(m[8]), decodeDense(m[9]), decodeDense(m[10]), decodeDense(m[11])
	return nil
}

// Apply performs one Adam update step on net's parameters given the
// gradients computed by Network.Backward.
func (a *Adam) Apply(net *Network, g *Gradients) {
	a.Step++
	update(net.W1, g.DW1, a.MW1, a.VW1, a)
	update(net.B1, g.DB1, a.MB1, a.VB1, a)
	update(net.W2, g.DW2, a.MW2, a.VW2, a)
	update(net.B2, g.DB2, a.MB2, a.VB2, a)
	update(net.W3, g.DW3, a.MW3, a.VW3, a)
	update(net.B3, g.DB3, a.MB3, a.VB3, a)
}

func update(param, grad, m, v *mat.Dense, a *Adam) {
	biasCorr1 := 1 - math.Pow(a.Beta1, float64(a.Step))
	biasCorr2 := 1 - math.Pow(a.Beta2, float64(a.Step))

	rows, cols := param.Dims()
	for r := 0; r < rows; r++ {
		pRow := param.RawRowView(r)
		gRow := grad.RawRowView(r)
		mRow := m.RawRowView(r)
		vRow := v.RawRowView(r)
		for c := 0; c < cols; c++ {
			gr := gRow[c]
			mRow[c] = a.Beta1*mRow[c] + (1-a.Beta1)*gr
			vRow[c] = a.Beta2*vRow[c] + (1-a.Beta2)*gr*gr

			mHat := mRow[c] / biasCorr1
			vHat := vRow[c] / biasCorr2

			pRow[c] -= a.LR * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
}

// SoftUpdate blends target toward policy: target <- tau*policy + (1-tau)*target.
func SoftUpdate(target, policy *Network, tau float64) {
	blend := func(t, p *mat.Dense) {
		rows, cols := t.Dims()
		for r := 0; r < rows; r++ {
			tRow := t.RawRowView(r)
			pRow := p.RawRowView(r)
			for c := 0; c < cols; c++ {
				tRow[c] = tau*pRow[c] + (1-tau)*tRow[c]
			}
		}
	}
	blend(target.W1, policy.W1)
	blend(target.B1, policy.B1)
	blend(target.W2, policy.W2)
	blend(target.B2, policy.B2)
	blend(target.W3, policy.W3)
	blend(target.B3, policy.B3)
}
