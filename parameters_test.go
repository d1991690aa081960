// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"math/bits"
	"testing"

	"github.com/pkg/errors"
)

func TestNewParameters(t *testing.T) {
	params, err := NewParameters(5, 17, 3)
	if err != nil {
		t.Fatalf("failed to create parameters: %v", err)
	}

	if params.N() != 32 {
		t.Errorf("ring degree: want 32, got %d", params.N())
	}
	if params.Ell() != 3 {
		t.Errorf("attribute count: want 3, got %d", params.Ell())
	}

	q := params.Q()
	if q%(2*32) != 1 {
		t.Errorf("modulus %d is not 1 mod 2N", q)
	}
	if got := bits.Len64(q); got != params.K() {
		t.Errorf("modulus bit length: want %d, got %d", params.K(), got)
	}
	if params.M() != params.K()+2 {
		t.Errorf("gadget width: want %d, got %d", params.K()+2, params.M())
	}
}

func TestGadgetVector(t *testing.T) {
	params, err := NewParametersFromLiteral(PN5QP17L3)
	if err != nil {
		t.Fatalf("failed to create parameters: %v", err)
	}

	g := params.Gadget()
	if len(g) != params.M() {
		t.Fatalf("gadget length: want %d, got %d", params.M(), len(g))
	}

	for i := 0; i < params.M()-2; i++ {
		if g[i].Coeffs[0][0] != uint64(1)<<uint(i) {
			t.Errorf("g[%d]: want %d, got %d", i, uint64(1)<<uint(i), g[i].Coeffs[0][0])
		}
		for c := 1; c < params.N(); c++ {
			if g[i].Coeffs[0][c] != 0 {
				t.Errorf("g[%d] is not a constant polynomial", i)
			}
		}
	}

	// The two trailing slots stay zero.
	for i := params.M() - 2; i < params.M(); i++ {
		for c := 0; c < params.N(); c++ {
			if g[i].Coeffs[0][c] != 0 {
				t.Errorf("g[%d] is not zero", i)
			}
		}
	}
}

func TestNewParametersNoCompatiblePrime(t *testing.T) {
	// No 2-bit prime is 1 mod 64.
	if _, err := NewParameters(5, 2, 1); !errors.Is(err, ErrNoCompatiblePrime) {
		t.Fatalf("want ErrNoCompatiblePrime, got %v", err)
	}
}

func TestNewParametersValidation(t *testing.T) {
	if _, err := NewParameters(2, 17, 3); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("tiny ring: want ErrShapeMismatch, got %v", err)
	}
	if _, err := NewParameters(5, 17, 0); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("zero attributes: want ErrShapeMismatch, got %v", err)
	}
}
