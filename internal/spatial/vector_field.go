package spatial

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// VectorField holds a fixed-length vector per node, stored node-major.
type VectorField struct {
	m     Manifold
	dim   int
	array []float64
}

// NewVectorField creates a zero field of dim-vectors over m.
func NewVectorField(m Manifold, dim int) *VectorField {
	return &VectorField{m: m, dim: dim, array: make([]float64, m.ArraySize()*dim)}
}

// Manifold returns the manifold the field is defined on.
func (v *VectorField) Manifold() Manifold { return v.m }

// Dim returns the number of components per node.
func (v *VectorField) Dim() int { return v.dim }

// Get returns a copy of the vector at node i.
func (v *VectorField) Get(i int) []float64 {
	return append([]float64(nil), v.array[i*v.dim:(i+1)*v.dim]...)
}

// Set stores x at node i.
func (v *VectorField) Set(i int, x []float64) error {
	if len(x) != v.dim {
		return fmt.Errorf("vector of length %d in a %d-vector field: %w", len(x), v.dim, ErrDimensionMismatch)
	}
	copy(v.array[i*v.dim:(i+1)*v.dim], x)
	return nil
}

// Reset zeroes every component.
func (v *VectorField) Reset() {
	for i := range v.array {
		v.array[i] = 0
	}
}

func (v *VectorField) compatible(o *VectorField) error {
	if o == nil || !Same(v.m, o.m) {
		return fmt.Errorf("vector field operands: %w", ErrManifoldMismatch)
	}
	if v.dim != o.dim {
		return fmt.Errorf("vector lengths %d and %d: %w", v.dim, o.dim, ErrDimensionMismatch)
	}
	return nil
}

func (v *VectorField) compatibleScalar(s *ScalarField) error {
	if s == nil || !Same(v.m, s.m) {
		return fmt.Errorf("vector and scalar field operands: %w", ErrManifoldMismatch)
	}
	return nil
}

// Add returns v + o.
func (v *VectorField) Add(o *VectorField) (*VectorField, error) {
	if err := v.compatible(o); err != nil {
		return nil, err
	}
	out := NewVectorField(v.m, v.dim)
	floats.AddTo(out.array, v.array, o.array)
	return out, nil
}

// Sub returns v - o.
func (v *VectorField) Sub(o *VectorField) (*VectorField, error) {
	if err := v.compatible(o); err != nil {
		return nil, err
	}
	out := NewVectorField(v.m, v.dim)
	floats.SubTo(out.array, v.array, o.array)
	return out, nil
}

// Dot returns the pointwise dot product as a scalar field.
func (v *VectorField) Dot(o *VectorField) (*ScalarField, error) {
	if err := v.compatible(o); err != nil {
		return nil, err
	}
	out := NewScalarField(v.m)
	for i := range out.array {
		lo, hi := i*v.dim, (i+1)*v.dim
		out.array[i] = floats.Dot(v.array[lo:hi], o.array[lo:hi])
	}
	return out, nil
}

// ScaleBy multiplies the vector at every node by the scalar at that node.
func (v *VectorField) ScaleBy(s *ScalarField) (*VectorField, error) {
	if err := v.compatibleScalar(s); err != nil {
		return nil, err
	}
	out := NewVectorField(v.m, v.dim)
	for i, c := range s.array {
		floats.ScaleTo(out.array[i*v.dim:(i+1)*v.dim], c, v.array[i*v.dim:(i+1)*v.dim])
	}
	return out, nil
}

// DivBy divides the vector at every node by the scalar at that node.
func (v *VectorField) DivBy(s *ScalarField) (*VectorField, error) {
	if err := v.compatibleScalar(s); err != nil {
		return nil, err
	}
	out := NewVectorField(v.m, v.dim)
	for i, c := range s.array {
		if c == 0 {
			return nil, fmt.Errorf("divisor is zero at node %d: %w", i, ErrDivisionByZero)
		}
		floats.ScaleTo(out.array[i*v.dim:(i+1)*v.dim], 1/c, v.array[i*v.dim:(i+1)*v.dim])
	}
	return out, nil
}
