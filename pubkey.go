// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// PublicKey is the public encoding matrix B: (ell+1) x m uniformly random
// ring elements, one row per attribute position plus the bias row B[0].
//
// The matrix is immutable after construction; gate operators derive new rows
// and never modify B. It may therefore be shared across concurrent gate
// evaluations.
type PublicKey struct {
	// B[i][j] is the polynomial at row i, column j.
	B [][]ring.Poly

	params Parameters
}

// NewPublicKey samples the public matrix with every entry drawn independently
// and uniformly from R_q using the supplied PRNG. This is the only source of
// the scheme's public randomness.
func NewPublicKey(params Parameters, prng sampling.PRNG) *PublicKey {
	uni := ring.NewUniformSampler(prng, params.ringQ)

	b := make([][]ring.Poly, params.ell+1)
	for i := range b {
		b[i] = make([]ring.Poly, params.m)
		for j := range b[i] {
			b[i][j] = uni.ReadNew()
		}
	}

	return &PublicKey{B: b, params: params}
}

// Params returns the parameters the key was generated under.
func (pk *PublicKey) Params() Parameters { return pk.params }

// AddGate returns the public encoding of the sum gate over the attributes at
// rows i1 and i2: the element-wise sum B[i1] + B[i2].
func (pk *PublicKey) AddGate(i1, i2 int) []ring.Poly {
	r := pk.params.ringQ
	out := make([]ring.Poly, pk.params.m)
	for j := range out {
		out[j] = r.NewPoly()
		r.Add(pk.B[i1][j], pk.B[i2][j], out[j])
	}
	return out
}

// MulGate returns the public encoding of the product gate over the attributes
// at rows i1 and i2: B[i2] * tau(-B[i1]).
//
// The operand ordering is part of the construction: the first operand's row is
// negated and bit-decomposed, the second is multiplied in directly. Swapping
// the two breaks the evaluation identity against Evaluator.MulMatrix.
func (pk *PublicKey) MulGate(i1, i2 int) []ring.Poly {
	r := pk.params.ringQ

	tau, err := BitDecompose(pk.params, negateRow(r, pk.B[i1]))
	if err != nil {
		// A reduced key row always decomposes.
		panic(err)
	}

	out, err := VecMatMul(r, pk.B[i2], tau)
	if err != nil {
		panic(err)
	}
	return out
}
