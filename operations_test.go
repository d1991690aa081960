// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/lattigo/v6/ring"
)

// TestBitDecomposeRoundTrip checks the gadget relation: reconstructing the
// decomposition against the gadget vector returns the input exactly.
func TestBitDecomposeRoundTrip(t *testing.T) {
	params, pk, _, _ := testSetup(t)

	tau, err := BitDecompose(params, pk.B[1])
	require.NoError(t, err)

	require.Len(t, tau, params.M())
	for h := range tau {
		require.Len(t, tau[h], params.M())
		for i := range tau[h] {
			for _, c := range tau[h][i].Coeffs[0] {
				require.LessOrEqual(t, c, uint64(1), "tau entries must be binary")
			}
		}
	}

	// recon[i] = sum_h g[h] * tau[h][i] == B[1][i].
	recon, err := VecMatMul(params.RingQ(), params.Gadget(), tau)
	require.NoError(t, err)

	for i := range recon {
		require.Equal(t, pk.B[1][i].Coeffs[0], recon[i].Coeffs[0], "polynomial %d does not round-trip", i)
	}
}

func TestBitDecomposeShape(t *testing.T) {
	params, pk, _, _ := testSetup(t)

	_, err := BitDecompose(params, pk.B[1][:params.M()-1])
	require.ErrorIs(t, err, ErrShapeMismatch)

	// A coefficient outside the modulus bit length must be rejected, not
	// silently truncated.
	u := make([]ring.Poly, params.M())
	for i := range u {
		u[i] = params.RingQ().NewPoly()
	}
	u[0].Coeffs[0][0] = uint64(1) << uint(params.K())
	_, err = BitDecompose(params, u)
	require.ErrorIs(t, err, ErrCoeffTooLarge)
}

func TestPolyAddSub(t *testing.T) {
	params, pk, _, _ := testSetup(t)
	r := params.RingQ()

	a, b := pk.B[0][0], pk.B[0][1]

	sum, err := PolyAdd(r, a, b)
	require.NoError(t, err)
	back, err := PolySub(r, sum, b)
	require.NoError(t, err)
	require.Equal(t, a.Coeffs[0], back.Coeffs[0])

	// Polynomials from a different ring degree are rejected.
	other, err := NewParameters(6, 17, 1)
	require.NoError(t, err)
	foreign := other.RingQ().NewPoly()

	_, err = PolyAdd(r, a, foreign)
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = PolySub(r, a, foreign)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestVecVecDot(t *testing.T) {
	params, pk, _, _ := testSetup(t)
	r := params.RingQ()

	one := r.NewPoly()
	one.Coeffs[0][0] = 1

	// <[1], [a]> == a.
	dot, err := VecVecDot(r, []ring.Poly{one}, []ring.Poly{pk.B[0][0]})
	require.NoError(t, err)
	require.Equal(t, pk.B[0][0].Coeffs[0], dot.Coeffs[0])

	_, err = VecVecDot(r, pk.B[0], pk.B[1][:2])
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestVecMatMulShape(t *testing.T) {
	params, pk, _, _ := testSetup(t)
	r := params.RingQ()

	tau, err := BitDecompose(params, pk.B[1])
	require.NoError(t, err)

	_, err = VecMatMul(r, pk.B[0][:2], tau)
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = VecMatMul(r, nil, nil)
	require.ErrorIs(t, err, ErrShapeMismatch)

	ragged := [][]ring.Poly{pk.B[0], pk.B[1][:2]}
	_, err = VecMatMul(r, pk.B[0][:2], ragged)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

// TestMulGateAsymmetry pins down the operand ordering: the gate decomposes
// its first operand and multiplies by the second, so swapping operands does
// not commute.
func TestMulGateAsymmetry(t *testing.T) {
	_, pk, _, _ := testSetup(t)

	forward := pk.MulGate(1, 2)
	swapped := pk.MulGate(2, 1)

	same := true
	for j := range forward {
		for c := range forward[j].Coeffs[0] {
			if forward[j].Coeffs[0][c] != swapped[j].Coeffs[0][c] {
				same = false
			}
		}
	}
	require.False(t, same, "mul gate should not be symmetric in its operands")
}
