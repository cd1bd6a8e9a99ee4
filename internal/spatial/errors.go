package spatial

import "errors"

// Contract violations reported by manifolds, embeddings and fields.
var (
	// ErrManifoldMismatch indicates field operands or an embedding that live on different manifolds.
	ErrManifoldMismatch = errors.New("spatial: manifold mismatch")

	// ErrDivisionByZero indicates a zero divisor in field division.
	ErrDivisionByZero = errors.New("spatial: division by zero")

	// ErrDimensionMismatch indicates vectors, points or dimension maps of the wrong length.
	ErrDimensionMismatch = errors.New("spatial: dimension mismatch")

	// ErrNotGridAligned indicates a direct embedding whose nodes do not fall on range nodes.
	ErrNotGridAligned = errors.New("spatial: embedding is not grid aligned")

	// ErrInvalidGeometry indicates a manifold constructed with non-positive sizes.
	ErrInvalidGeometry = errors.New("spatial: invalid manifold geometry")
)
