package spatial

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ScalarField holds one value per node of a manifold.
type ScalarField struct {
	m     Manifold
	array []float64
}

// NewScalarField creates a zero field over m.
func NewScalarField(m Manifold) *ScalarField {
	return &ScalarField{m: m, array: make([]float64, m.ArraySize())}
}

// NewScalarFieldFrom copies values into a new field over m.
func NewScalarFieldFrom(m Manifold, values []float64) (*ScalarField, error) {
	if len(values) != m.ArraySize() {
		return nil, fmt.Errorf("%d values for %d nodes: %w", len(values), m.ArraySize(), ErrDimensionMismatch)
	}
	return &ScalarField{m: m, array: append([]float64(nil), values...)}, nil
}

// NewScalarFieldWith samples init at every node of m.
func NewScalarFieldWith(m Manifold, init Initializer) *ScalarField {
	f := NewScalarField(m)
	f.Initialize(init)
	return f
}

// Manifold returns the manifold the field is defined on.
func (f *ScalarField) Manifold() Manifold { return f.m }

// Array exposes the backing slice. Writes through it change the field.
func (f *ScalarField) Array() []float64 { return f.array }

// Get returns the value at node i. It panics when i is not a node.
func (f *ScalarField) Get(i int) float64 { return f.array[i] }

// Set stores v at node i. It panics when i is not a node.
func (f *ScalarField) Set(i int, v float64) { f.array[i] = v }

// Initialize overwrites every node with init sampled at the node position.
func (f *ScalarField) Initialize(init Initializer) {
	for i := range f.array {
		f.array[i] = init.Value(f.m.Coordinate(i))
	}
}

// Copy returns an independent copy over the same manifold.
func (f *ScalarField) Copy() *ScalarField {
	return &ScalarField{m: f.m, array: append([]float64(nil), f.array...)}
}

// Reset zeroes every node.
func (f *ScalarField) Reset() {
	for i := range f.array {
		f.array[i] = 0
	}
}

// Sum returns the plain sum of node values.
func (f *ScalarField) Sum() float64 {
	return floats.Sum(f.array)
}

// ValueAt interpolates the field at a local point. Points outside the
// manifold read as zero.
func (f *ScalarField) ValueAt(point []float64) float64 {
	v := 0.0
	for _, s := range f.m.InterpolationStencil(point) {
		v += s.Weight * f.array[s.Index]
	}
	return v
}

// GradientAt returns the gradient at node i, one component per dimension.
func (f *ScalarField) GradientAt(i int) []float64 {
	stencil := f.m.GradientStencil(i)
	g := make([]float64, len(stencil))
	for d, entries := range stencil {
		for _, s := range entries {
			g[d] += s.Weight * f.array[s.Index]
		}
	}
	return g
}

// GradientAtPoint interpolates node gradients at a local point.
func (f *ScalarField) GradientAtPoint(point []float64) []float64 {
	g := make([]float64, f.m.Dim())
	for _, s := range f.m.InterpolationStencil(point) {
		floats.AddScaled(g, s.Weight, f.GradientAt(s.Index))
	}
	return g
}

// LaplacianAt applies the Laplacian stencil of node i.
func (f *ScalarField) LaplacianAt(i int) float64 {
	v := 0.0
	for _, s := range f.m.LaplacianStencil(i) {
		v += s.Weight * f.array[s.Index]
	}
	return v
}

// Laplacian returns the Laplacian of the field at every node.
func (f *ScalarField) Laplacian() *ScalarField {
	out := NewScalarField(f.m)
	for i := range out.array {
		out.array[i] = f.LaplacianAt(i)
	}
	return out
}

// Gradient returns the gradient at every node.
func (f *ScalarField) Gradient() *VectorField {
	out := NewVectorField(f.m, f.m.Dim())
	for i := 0; i < f.m.ArraySize(); i++ {
		copy(out.array[i*out.dim:(i+1)*out.dim], f.GradientAt(i))
	}
	return out
}

// Integrate integrates the field over its manifold.
func (f *ScalarField) Integrate() float64 {
	return f.m.Integrate(f)
}

func (f *ScalarField) compatible(o *ScalarField) error {
	if o == nil {
		return fmt.Errorf("nil operand: %w", ErrManifoldMismatch)
	}
	if !Same(f.m, o.m) {
		return fmt.Errorf("field on manifold %d combined with field on manifold %d: %w",
			f.m.ID(), o.m.ID(), ErrManifoldMismatch)
	}
	return nil
}

// Add returns f + o.
func (f *ScalarField) Add(o *ScalarField) (*ScalarField, error) {
	if err := f.compatible(o); err != nil {
		return nil, err
	}
	out := NewScalarField(f.m)
	floats.AddTo(out.array, f.array, o.array)
	return out, nil
}

// Sub returns f - o.
func (f *ScalarField) Sub(o *ScalarField) (*ScalarField, error) {
	if err := f.compatible(o); err != nil {
		return nil, err
	}
	out := NewScalarField(f.m)
	floats.SubTo(out.array, f.array, o.array)
	return out, nil
}

// Mul returns the pointwise product f * o.
func (f *ScalarField) Mul(o *ScalarField) (*ScalarField, error) {
	if err := f.compatible(o); err != nil {
		return nil, err
	}
	out := NewScalarField(f.m)
	floats.MulTo(out.array, f.array, o.array)
	return out, nil
}

// Div returns the pointwise quotient f / o. Any zero in o is an error.
func (f *ScalarField) Div(o *ScalarField) (*ScalarField, error) {
	if err := f.compatible(o); err != nil {
		return nil, err
	}
	for i, v := range o.array {
		if v == 0 {
			return nil, fmt.Errorf("divisor is zero at node %d: %w", i, ErrDivisionByZero)
		}
	}
	out := NewScalarField(f.m)
	floats.DivTo(out.array, f.array, o.array)
	return out, nil
}

// Scale returns s * f.
func (f *ScalarField) Scale(s float64) *ScalarField {
	out := NewScalarField(f.m)
	floats.ScaleTo(out.array, s, f.array)
	return out
}

// Accumulate adds o into f in place.
func (f *ScalarField) Accumulate(o *ScalarField) error {
	return f.AccumulateScaled(1, o)
}

// AccumulateScaled adds alpha*o into f in place.
func (f *ScalarField) AccumulateScaled(alpha float64, o *ScalarField) error {
	if err := f.compatible(o); err != nil {
		return err
	}
	floats.AddScaled(f.array, alpha, o.array)
	return nil
}

// MulVector returns the vector field f * v.
func (f *ScalarField) MulVector(v *VectorField) (*VectorField, error) {
	return v.ScaleBy(f)
}
