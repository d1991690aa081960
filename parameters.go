// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"math/bits"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v6/ring"
)

// Parameters holds the public parameters of a BGG+ attribute encoding: the
// ring R_q = Z_q[X]/(X^N+1), the attribute count and the gadget vector.
//
// The gadget width is m = k+2, where k is the actual bit length of the chosen
// prime. The two trailing gadget slots are zero: they exist so that m is wide
// enough to also index error terms and trapdoor columns, while the gadget
// itself decomposes exactly k bits.
type Parameters struct {
	logN int
	ell  int
	k    int
	m    int
	q    uint64

	ringQ *ring.Ring
	g     []ring.Poly
}

// ParametersLiteral is a user-friendly parameter specification.
type ParametersLiteral struct {
	// LogRingSize is log2 of the ring degree N.
	LogRingSize int
	// ModulusBits is the requested bit length of the prime modulus. The
	// chosen prime may be one bit longer after the NTT-friendly prime search.
	ModulusBits int
	// Attributes is the number of attributes ell. The encoding carries ell+1
	// rows; row 0 is the protocol's fixed bias row.
	Attributes int
}

// Standard parameter sets.
var (
	// PN12QP51L7 is the production-sized set: N=4096, ~51-bit modulus,
	// 7 attributes.
	PN12QP51L7 = ParametersLiteral{
		LogRingSize: 12,
		ModulusBits: 51,
		Attributes:  7,
	}

	// PN5QP17L3 is a fast set for tests: N=32, ~17-bit modulus, 3 attributes.
	PN5QP17L3 = ParametersLiteral{
		LogRingSize: 5,
		ModulusBits: 17,
		Attributes:  3,
	}
)

// NewParametersFromLiteral creates Parameters from a literal specification.
func NewParametersFromLiteral(lit ParametersLiteral) (Parameters, error) {
	return NewParameters(lit.LogRingSize, lit.ModulusBits, lit.Attributes)
}

// NewParameters derives the public parameters from the ring degree exponent,
// the requested modulus bit length and the attribute count.
//
// The modulus is the NTT-friendly prime of bit length k closest to 2^k
// satisfying q = 1 mod 2N, so that R_q supports a full negacyclic NTT. The
// gadget width m is recomputed from the actual bit length of the chosen prime.
func NewParameters(logRingSize, k, ell int) (Parameters, error) {
	if logRingSize < 4 {
		return Parameters{}, errors.Wrapf(ErrShapeMismatch, "log ring size %d: ring degree must be at least 16", logRingSize)
	}
	if ell < 1 {
		return Parameters{}, errors.Wrapf(ErrShapeMismatch, "attribute count %d: must be at least 1", ell)
	}

	n := 1 << logRingSize

	gen := ring.NewNTTFriendlyPrimesGenerator(uint64(k), uint64(2*n))
	q, err := gen.NextAlternatingPrime()
	if err != nil {
		return Parameters{}, errors.Wrapf(ErrNoCompatiblePrime, "%d-bit prime = 1 mod %d: %s", k, 2*n, err)
	}

	// The generator can hand back a prime outside the 1 mod 2N class when the
	// bit length is too small to hold one.
	if q%uint64(2*n) != 1 {
		return Parameters{}, errors.Wrapf(ErrNoCompatiblePrime, "%d-bit prime %d is not 1 mod %d", k, q, 2*n)
	}

	ringQ, err := ring.NewRing(n, []uint64{q})
	if err != nil {
		return Parameters{}, errors.Wrap(err, "new ring")
	}

	// Actual bit length of the chosen prime; the search may round up.
	kAct := bits.Len64(q)
	m := kAct + 2

	return Parameters{
		logN:  logRingSize,
		ell:   ell,
		k:     kAct,
		m:     m,
		q:     q,
		ringQ: ringQ,
		g:     gadgetVector(ringQ, m),
	}, nil
}

// gadgetVector returns g = [2^0, 2^1, ..., 2^(m-3), 0, 0] as constant
// polynomials in R_q.
func gadgetVector(r *ring.Ring, m int) []ring.Poly {
	g := make([]ring.Poly, m)
	for i := range g {
		g[i] = r.NewPoly()
		if i < m-2 {
			g[i].Coeffs[0][0] = 1 << uint(i)
		}
	}
	return g
}

// LogRingSize returns log2 of the ring degree.
func (p Parameters) LogRingSize() int { return p.logN }

// N returns the ring degree.
func (p Parameters) N() int { return 1 << p.logN }

// Ell returns the attribute count.
func (p Parameters) Ell() int { return p.ell }

// K returns the actual bit length of the modulus.
func (p Parameters) K() int { return p.k }

// M returns the gadget width m = K()+2.
func (p Parameters) M() int { return p.m }

// Q returns the prime modulus.
func (p Parameters) Q() uint64 { return p.q }

// RingQ returns the underlying ring.
func (p Parameters) RingQ() *ring.Ring { return p.ringQ }

// Gadget returns the gadget vector. The returned slice is shared; callers
// must not modify it.
func (p Parameters) Gadget() []ring.Poly { return p.g }

// Equal reports whether two parameter sets describe the same encoding.
func (p Parameters) Equal(other Parameters) bool {
	return p.logN == other.logN && p.ell == other.ell && p.q == other.q
}
