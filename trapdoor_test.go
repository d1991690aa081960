// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrapdoorGeneration(t *testing.T) {
	params, err := NewParametersFromLiteral(PN5QP17L3)
	require.NoError(t, err)

	sampler := NewGadgetTrapdoorSampler(params, testPRNG(t, "trapdoor"))
	td, row, err := sampler.Trapdoor()
	require.NoError(t, err)

	require.Len(t, row, params.M(), "public row should have gadget width")
	require.Len(t, td.R, params.K())
	require.Len(t, td.E, params.K())

	// row[0] is the constant 1.
	require.Equal(t, uint64(1), row[0].Coeffs[0][0])
	for c := 1; c < params.N(); c++ {
		require.Zero(t, row[0].Coeffs[0][c])
	}

	// The trapdoor solves the gadget relation:
	// row[j+2] + a*R[j] + E[j] == g[j] for a = row[1].
	r := params.RingQ()
	for j := 0; j < params.K(); j++ {
		lhs := PolyMul(r, row[1], td.R[j])
		lhs, err = PolyAdd(r, lhs, td.E[j])
		require.NoError(t, err)
		lhs, err = PolyAdd(r, lhs, row[j+2])
		require.NoError(t, err)
		require.Equal(t, params.Gadget()[j].Coeffs[0], lhs.Coeffs[0], "gadget relation fails at column %d", j)
	}
}

func TestTrapdoorDeterminism(t *testing.T) {
	params, err := NewParametersFromLiteral(PN5QP17L3)
	require.NoError(t, err)

	_, row1, err := NewGadgetTrapdoorSampler(params, testPRNG(t, "trapdoor")).Trapdoor()
	require.NoError(t, err)
	_, row2, err := NewGadgetTrapdoorSampler(params, testPRNG(t, "trapdoor")).Trapdoor()
	require.NoError(t, err)

	for j := range row1 {
		require.Equal(t, row1[j].Coeffs[0], row2[j].Coeffs[0])
	}
}

func TestPreimageUnimplemented(t *testing.T) {
	params, err := NewParametersFromLiteral(PN5QP17L3)
	require.NoError(t, err)

	sampler := NewGadgetTrapdoorSampler(params, testPRNG(t, "trapdoor"))
	td, row, err := sampler.Trapdoor()
	require.NoError(t, err)

	require.Panics(t, func() {
		sampler.Preimage(td, row, params.RingQ().NewPoly(), TrapdoorSigma)
	})
}
