// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

// TrapdoorSigma is the Gaussian width used for the trapdoor entries, the
// smoothing parameter of the base noise distribution.
const TrapdoorSigma = NoiseSigma

// Trapdoor is the secret half of a gadget trapdoor: the Gaussian vectors
// (R, E) hidden inside the public row. Knowledge of (R, E) reduces preimage
// sampling for the public row to preimage sampling for the gadget.
type Trapdoor struct {
	R []ring.Poly
	E []ring.Poly
}

// TrapdoorSampler is the capability surface of the trapdoor subsystem
// consumed by a decryption/key-extraction layer: trapdoor generation paired
// with preimage sampling. The core encoding does not depend on it; it is
// specified here so that integrating a backend does not reshape the data
// model.
type TrapdoorSampler interface {
	// Trapdoor generates a trapdoor and the associated public row of m ring
	// elements.
	Trapdoor() (*Trapdoor, []ring.Poly, error)

	// Preimage returns a low-norm vector z with <row, z> = target, using the
	// trapdoor and Gaussian width sigma.
	Preimage(td *Trapdoor, row []ring.Poly, target ring.Poly, sigma float64) []ring.Poly
}

// GadgetTrapdoorSampler generates Ring-LWE gadget trapdoors over the encoding
// parameters: the public row is [1, a, g_0-(a*r_0+e_0), ..., g_{k-1}-(a*r_{k-1}+e_{k-1})]
// for uniform a and Gaussian (r, e), which is pseudorandom under Ring-LWE
// while (R, E) solves the gadget relation for it.
type GadgetTrapdoorSampler struct {
	params Parameters
	prng   sampling.PRNG
}

// NewGadgetTrapdoorSampler creates a trapdoor sampler drawing randomness from
// the supplied PRNG.
func NewGadgetTrapdoorSampler(params Parameters, prng sampling.PRNG) *GadgetTrapdoorSampler {
	return &GadgetTrapdoorSampler{params: params, prng: prng}
}

// Trapdoor generates a fresh trapdoor and its public row. The row has the
// gadget width m = k+2: the constant 1, the uniform element a, and the k
// masked gadget entries.
func (s *GadgetTrapdoorSampler) Trapdoor() (*Trapdoor, []ring.Poly, error) {
	p := s.params
	r := p.ringQ

	uni := ring.NewUniformSampler(s.prng, r)
	gauss := ring.NewGaussianSampler(s.prng, r, ring.DiscreteGaussian{Sigma: TrapdoorSigma, Bound: NoiseBound}, false)

	a := uni.ReadNew()
	aT := r.NewPoly()
	r.NTT(a, aT)

	td := &Trapdoor{
		R: make([]ring.Poly, p.k),
		E: make([]ring.Poly, p.k),
	}

	row := make([]ring.Poly, p.m)
	row[0] = r.NewPoly()
	row[0].Coeffs[0][0] = 1
	row[1] = a

	tmp := r.NewPoly()
	for j := 0; j < p.k; j++ {
		td.R[j] = gauss.ReadNew()
		td.E[j] = gauss.ReadNew()

		// row[j+2] = g[j] - (a*R[j] + E[j])
		r.NTT(td.R[j], tmp)
		r.MulCoeffsBarrett(aT, tmp, tmp)
		r.INTT(tmp, tmp)
		r.Add(tmp, td.E[j], tmp)

		row[j+2] = r.NewPoly()
		r.Sub(p.g[j], tmp, row[j+2])
	}

	return td, row, nil
}

// Preimage is not implemented. It panics rather than returning data that
// would silently break the gadget relation.
func (s *GadgetTrapdoorSampler) Preimage(td *Trapdoor, row []ring.Poly, target ring.Poly, sigma float64) []ring.Poly {
	panic("bgg: trapdoor preimage sampling is not implemented")
}
