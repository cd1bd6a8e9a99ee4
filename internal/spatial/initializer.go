package spatial

import "math"

// Initializer gives the initial value of a field at a local point.
type Initializer interface {
	Value(point []float64) float64
}

// Constant is the same value everywhere.
type Constant struct {
	C float64
}

func (c Constant) Value([]float64) float64 { return c.C }

// Linear varies along a single axis: Start + Slope*x[Axis]. On manifolds
// without that axis it is Start.
type Linear struct {
	Axis  int
	Start float64
	Slope float64
}

func (l Linear) Value(point []float64) float64 {
	if l.Axis < 0 || l.Axis >= len(point) {
		return l.Start
	}
	return l.Start + l.Slope*point[l.Axis]
}

// Gaussian peaks at Center with per-axis widths Sigma:
// Peak * exp(-sum((x-c)^2 / (2 sigma^2))).
type Gaussian struct {
	Center []float64
	Sigma  []float64
	Peak   float64
}

func (g Gaussian) Value(point []float64) float64 {
	e := 0.0
	for d := range point {
		if d >= len(g.Center) || d >= len(g.Sigma) || g.Sigma[d] == 0 {
			continue
		}
		dx := point[d] - g.Center[d]
		e += dx * dx / (2 * g.Sigma[d] * g.Sigma[d])
	}
	return g.Peak * math.Exp(-e)
}
