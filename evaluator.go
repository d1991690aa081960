// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v6/ring"
)

// Evaluator computes the ciphertext-side evaluation matrices H for boolean
// gates. Applied to the concatenation of two encoding rows, H reproduces the
// key-side gate output shifted by the evaluated attribute function times the
// gadget vector:
//
//	(ct[i1] | ct[i2]) * H = B_gate + f(x[i1], x[i2]) * G
//
// The matrices are pure functions of public data and are rebuilt per gate
// call; an Evaluator holds no state beyond the parameters and is safe for
// concurrent use.
type Evaluator struct {
	params Parameters
}

// NewEvaluator creates an evaluator for the given parameters.
func NewEvaluator(params Parameters) *Evaluator {
	return &Evaluator{params: params}
}

// AddMatrix returns the 2m x m evaluation matrix of the sum gate: two stacked
// m x m identity blocks. It depends on neither the public key nor the
// attribute vector.
func (e *Evaluator) AddMatrix() [][]ring.Poly {
	p := e.params
	h := make([][]ring.Poly, 2*p.m)
	for i := range h {
		h[i] = make([]ring.Poly, p.m)
		for j := range h[i] {
			h[i][j] = p.ringQ.NewPoly()
			if i%p.m == j {
				h[i][j].Coeffs[0][0] = 1
			}
		}
	}
	return h
}

// MulMatrix returns the 2m x m evaluation matrix of the product gate for the
// first operand's public row b1 and the second operand's attribute bit x2:
// the identity scaled by x2 stacked on tau(-b1).
//
// The asymmetry mirrors PublicKey.MulGate: the first operand is decomposed,
// the second contributes only its attribute bit.
func (e *Evaluator) MulMatrix(b1 []ring.Poly, x2 uint64) ([][]ring.Poly, error) {
	p := e.params

	if len(b1) != p.m {
		return nil, errors.Wrapf(ErrShapeMismatch, "mul evaluation: row has %d entries, want %d", len(b1), p.m)
	}
	if x2 > 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "mul evaluation: attribute value %d is not a bit", x2)
	}

	tau, err := BitDecompose(p, negateRow(p.ringQ, b1))
	if err != nil {
		return nil, err
	}

	h := make([][]ring.Poly, 2*p.m)
	for i := 0; i < p.m; i++ {
		h[i] = make([]ring.Poly, p.m)
		for j := range h[i] {
			h[i][j] = p.ringQ.NewPoly()
			if i == j {
				h[i][j].Coeffs[0][0] = x2
			}
		}
	}
	copy(h[p.m:], tau)
	return h, nil
}
