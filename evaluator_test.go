// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"testing"

	"github.com/pkg/errors"
)

func TestAddMatrixStructure(t *testing.T) {
	params, _, _, _ := testSetup(t)
	eval := NewEvaluator(params)

	h := eval.AddMatrix()
	if len(h) != 2*params.M() {
		t.Fatalf("add matrix rows: want %d, got %d", 2*params.M(), len(h))
	}

	for i := range h {
		if len(h[i]) != params.M() {
			t.Fatalf("add matrix row %d: want %d columns, got %d", i, params.M(), len(h[i]))
		}
		for j := range h[i] {
			want := uint64(0)
			if i%params.M() == j {
				want = 1
			}
			if h[i][j].Coeffs[0][0] != want {
				t.Fatalf("add matrix (%d, %d): want constant %d, got %d", i, j, want, h[i][j].Coeffs[0][0])
			}
			for c := 1; c < params.N(); c++ {
				if h[i][j].Coeffs[0][c] != 0 {
					t.Fatalf("add matrix (%d, %d) is not a constant polynomial", i, j)
				}
			}
		}
	}
}

func TestMulMatrixStructure(t *testing.T) {
	params, pk, _, _ := testSetup(t)
	eval := NewEvaluator(params)

	for _, bit := range []uint64{0, 1} {
		h, err := eval.MulMatrix(pk.B[1], bit)
		if err != nil {
			t.Fatalf("mul evaluation matrix failed: %v", err)
		}
		if len(h) != 2*params.M() {
			t.Fatalf("mul matrix rows: want %d, got %d", 2*params.M(), len(h))
		}

		// Top block is the identity scaled by the attribute bit.
		for i := 0; i < params.M(); i++ {
			for j := 0; j < params.M(); j++ {
				want := uint64(0)
				if i == j {
					want = bit
				}
				if h[i][j].Coeffs[0][0] != want {
					t.Fatalf("mul matrix top block (%d, %d): want %d, got %d", i, j, want, h[i][j].Coeffs[0][0])
				}
			}
		}

		// Bottom block is binary.
		for i := params.M(); i < 2*params.M(); i++ {
			for j := range h[i] {
				for _, c := range h[i][j].Coeffs[0] {
					if c > 1 {
						t.Fatalf("mul matrix bottom block (%d, %d) is not binary", i, j)
					}
				}
			}
		}
	}
}

func TestMulMatrixValidation(t *testing.T) {
	params, pk, _, _ := testSetup(t)
	eval := NewEvaluator(params)

	if _, err := eval.MulMatrix(pk.B[1][:params.M()-1], 1); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("short row: want ErrShapeMismatch, got %v", err)
	}
	if _, err := eval.MulMatrix(pk.B[1], 2); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("non-bit attribute: want ErrShapeMismatch, got %v", err)
	}
}
