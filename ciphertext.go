// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// Noise parameters of the structured error distribution.
const (
	// NoiseSigma is the standard deviation of the base discrete Gaussian
	// noise terms, a fixed noise-flooding parameter.
	NoiseSigma = 3.19
	// NoiseBound is the absolute cutoff of the discrete Gaussian, the usual
	// 6-sigma tail bound.
	NoiseBound = 19.2
)

// Ciphertext is the encoding of an attribute vector x under a public key:
// inner[i] = B[i] + x[i]*G row by row, together with a freshly sampled secret
// and a structured error matrix. The secret and error are owned exclusively
// by the ciphertext.
//
// The error is a signed combination of m shared Gaussian base terms: the base
// terms are sampled once per ciphertext, and every (row, column) cell
// accumulates them under independently resampled signs. The correlation bounds
// noise growth under the homomorphic operators without re-randomization, while
// the fresh signs keep cells pairwise independent.
type Ciphertext struct {
	inner  [][]ring.Poly
	secret ring.Poly
	e      [][]ring.Poly

	params Parameters
}

// NewCiphertext encodes the attribute vector x under pk. x must have exactly
// ell+1 entries in {0, 1}; by protocol convention x[0] = 1, so that the bias
// row B[0] is always shifted by the gadget.
func NewCiphertext(pk *PublicKey, x []uint64, prng sampling.PRNG) (*Ciphertext, error) {
	p := pk.params
	r := p.ringQ

	if len(x) != p.ell+1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "attribute vector: %d entries, want %d", len(x), p.ell+1)
	}
	for i, xi := range x {
		if xi > 1 {
			return nil, errors.Wrapf(ErrShapeMismatch, "attribute %d: %d is not a bit", i, xi)
		}
	}

	uni := ring.NewUniformSampler(prng, r)
	secret := uni.ReadNew()

	gauss := ring.NewGaussianSampler(prng, r, ring.DiscreteGaussian{Sigma: NoiseSigma, Bound: NoiseBound}, false)
	base := make([]ring.Poly, p.m)
	for t := range base {
		base[t] = gauss.ReadNew()
	}

	signs := newSignSource(prng)
	e := make([][]ring.Poly, p.ell+1)
	for i := range e {
		e[i] = make([]ring.Poly, p.m)
		for si := range e[i] {
			acc := r.NewPoly()
			for t := range base {
				if signs.next() {
					r.Add(acc, base[t], acc)
				} else {
					r.Sub(acc, base[t], acc)
				}
			}
			e[i][si] = acc
		}
	}

	inner := make([][]ring.Poly, p.ell+1)
	for i := range inner {
		inner[i] = make([]ring.Poly, p.m)
		for j := range inner[i] {
			c := r.NewPoly()
			if x[i] == 1 {
				r.Add(pk.B[i][j], p.g[j], c)
			} else {
				copy(c.Coeffs[0], pk.B[i][j].Coeffs[0])
			}
			inner[i][j] = c
		}
	}

	return &Ciphertext{inner: inner, secret: secret, e: e, params: p}, nil
}

// Params returns the parameters the ciphertext was built under.
func (ct *Ciphertext) Params() Parameters { return ct.params }

// Inner returns the noiseless encoding matrix inner[i] = B[i] + x[i]*G. The
// returned rows are the ciphertext's own; callers must not modify them.
func (ct *Ciphertext) Inner() [][]ring.Poly { return ct.inner }

// Row returns row i of the noiseless encoding matrix.
func (ct *Ciphertext) Row(i int) []ring.Poly { return ct.inner[i] }

// CTFull assembles the decryptable ciphertext: a Ring-LWE sample
// inner[i][j]*secret + e[i][j] for every entry.
func (ct *Ciphertext) CTFull() [][]ring.Poly {
	r := ct.params.ringQ

	sT := r.NewPoly()
	r.NTT(ct.secret, sT)

	out := make([][]ring.Poly, len(ct.inner))
	for i := range ct.inner {
		out[i] = make([]ring.Poly, len(ct.inner[i]))
		for j := range ct.inner[i] {
			c := r.NewPoly()
			r.NTT(ct.inner[i][j], c)
			r.MulCoeffsBarrett(c, sT, c)
			r.INTT(c, c)
			r.Add(c, ct.e[i][j], c)
			out[i][j] = c
		}
	}
	return out
}

// signSource serves uniform sign bits drawn from a PRNG byte stream.
type signSource struct {
	src io.Reader
	buf [32]byte
	n   int
	bit uint
}

func newSignSource(src io.Reader) *signSource {
	return &signSource{src: src, n: -1}
}

func (s *signSource) next() bool {
	if s.n < 0 || (s.n == len(s.buf)-1 && s.bit == 8) {
		if _, err := io.ReadFull(s.src, s.buf[:]); err != nil {
			// The PRNGs used here do not fail.
			panic(err)
		}
		s.n = 0
		s.bit = 0
	} else if s.bit == 8 {
		s.n++
		s.bit = 0
	}
	b := (s.buf[s.n] >> s.bit) & 1
	s.bit++
	return b == 1
}
