package valuenet

import "gonum.org/v1/gonum/mat"

// denseBlob is the gob-friendly representation of a *mat.Dense: mat.Dense
// itself has no exported fields and gob does not consult
// encoding.BinaryMarshaler, so every matrix round-trips through this shape
// instead, mirroring how the pack's GoLearn networks serialize their own
// parameters field-by-field rather than relying on automatic struct gob
// encoding.
type denseBlob struct {
	Rows, Cols int
	Data       []float64
}

func encodeDense(m *mat.Dense) denseBlob {
	r, c := m.Dims()
	data := make([]float64, r*c)
	copy(data, m.RawMatrix().Data)
	return denseBlob{Rows: r, Cols: c, Data: data}
}

func decodeDense(b denseBlob) *mat.Dense {
	return mat.NewDense(b.Rows, b.Cols, b.Data)
}
