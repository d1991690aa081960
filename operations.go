// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v6/ring"
)

// PolyAdd returns a + b over R_q.
func PolyAdd(r *ring.Ring, a, b ring.Poly) (ring.Poly, error) {
	if len(a.Coeffs[0]) != len(b.Coeffs[0]) {
		return ring.Poly{}, errors.Wrapf(ErrShapeMismatch, "poly add: %d vs %d coefficients", len(a.Coeffs[0]), len(b.Coeffs[0]))
	}
	c := r.NewPoly()
	r.Add(a, b, c)
	return c, nil
}

// PolySub returns a - b over R_q.
func PolySub(r *ring.Ring, a, b ring.Poly) (ring.Poly, error) {
	if len(a.Coeffs[0]) != len(b.Coeffs[0]) {
		return ring.Poly{}, errors.Wrapf(ErrShapeMismatch, "poly sub: %d vs %d coefficients", len(a.Coeffs[0]), len(b.Coeffs[0]))
	}
	c := r.NewPoly()
	r.Sub(a, b, c)
	return c, nil
}

// PolyMul returns a * b over R_q. Both operands are in coefficient form; the
// product is computed through the NTT and brought back to coefficient form.
func PolyMul(r *ring.Ring, a, b ring.Poly) ring.Poly {
	aT := r.NewPoly()
	bT := r.NewPoly()
	r.NTT(a, aT)
	r.NTT(b, bT)
	r.MulCoeffsBarrett(aT, bT, aT)
	r.INTT(aT, aT)
	return aT
}

// VecVecDot returns the ring dot product sum_i a[i]*b[i] of two equal-length
// vectors of ring elements.
func VecVecDot(r *ring.Ring, a, b []ring.Poly) (ring.Poly, error) {
	if len(a) != len(b) {
		return ring.Poly{}, errors.Wrapf(ErrShapeMismatch, "dot product: %d vs %d entries", len(a), len(b))
	}

	// Accumulate in the NTT domain, with a single inverse transform at the end.
	acc := r.NewPoly()
	aT := r.NewPoly()
	bT := r.NewPoly()
	for i := range a {
		r.NTT(a[i], aT)
		r.NTT(b[i], bT)
		r.MulCoeffsBarrettThenAdd(aT, bT, acc)
	}
	r.INTT(acc, acc)
	return acc, nil
}

// VecMatMul treats vec as a 1 x L row vector and mat as an L x C matrix and
// returns their 1 x C product.
func VecMatMul(r *ring.Ring, vec []ring.Poly, mat [][]ring.Poly) ([]ring.Poly, error) {
	if len(mat) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "vec-mat product: empty matrix")
	}
	if len(vec) != len(mat) {
		return nil, errors.Wrapf(ErrShapeMismatch, "vec-mat product: vector length %d vs %d matrix rows", len(vec), len(mat))
	}
	cols := len(mat[0])
	for i := range mat {
		if len(mat[i]) != cols {
			return nil, errors.Wrapf(ErrShapeMismatch, "vec-mat product: ragged matrix row %d", i)
		}
	}

	out := make([]ring.Poly, cols)
	col := make([]ring.Poly, len(vec))
	for j := 0; j < cols; j++ {
		for i := range mat {
			col[i] = mat[i][j]
		}
		prod, err := VecVecDot(r, vec, col)
		if err != nil {
			return nil, err
		}
		out[j] = prod
	}
	return out, nil
}

// BitDecompose decomposes an m-length vector of ring elements against the
// gadget vector. The result tau is an m x m matrix of binary polynomials in
// which row h holds bit plane h of every input coefficient, so that
// sum_h tau[h][i] * g[h] == u[i] exactly.
//
// Every coefficient must fit in K() bits; reduced ring elements always do.
// A larger coefficient is rejected rather than silently truncated.
func BitDecompose(p Parameters, u []ring.Poly) ([][]ring.Poly, error) {
	if len(u) != p.m {
		return nil, errors.Wrapf(ErrShapeMismatch, "bit decompose: %d polynomials, want %d", len(u), p.m)
	}

	n := p.ringQ.N()
	for i := range u {
		if len(u[i].Coeffs[0]) != n {
			return nil, errors.Wrapf(ErrShapeMismatch, "bit decompose: polynomial %d has %d coefficients, want %d", i, len(u[i].Coeffs[0]), n)
		}
		for j, c := range u[i].Coeffs[0] {
			if c>>uint(p.k) != 0 {
				return nil, errors.Wrapf(ErrCoeffTooLarge, "bit decompose: coefficient (%d, %d) = %d", i, j, c)
			}
		}
	}

	tau := make([][]ring.Poly, p.m)
	for h := 0; h < p.m; h++ {
		tau[h] = make([]ring.Poly, p.m)
		for i := 0; i < p.m; i++ {
			t := p.ringQ.NewPoly()
			coeffs := t.Coeffs[0]
			src := u[i].Coeffs[0]
			for j := 0; j < n; j++ {
				coeffs[j] = (src[j] >> uint(h)) & 1
			}
			tau[h][i] = t
		}
	}
	return tau, nil
}

// negateRow returns the element-wise ring negation of a row of polynomials.
// Neg leaves q in place of zero coefficients, so the result is reduced back to
// canonical form before it can be bit-decomposed.
func negateRow(r *ring.Ring, row []ring.Poly) []ring.Poly {
	out := make([]ring.Poly, len(row))
	for i := range row {
		out[i] = r.NewPoly()
		r.Neg(row[i], out[i])
		r.Reduce(out[i], out[i])
	}
	return out
}
