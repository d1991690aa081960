// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"github.com/pkg/errors"
	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"
	"golang.org/x/crypto/blake2b"
)

// HashDist selects the output distribution of a HashSampler.
type HashDist uint8

const (
	// HashDistRing samples coefficients uniformly over the ring field [0, q).
	HashDistRing HashDist = iota
	// HashDistBit samples coefficients uniformly over {0, 1}.
	HashDistBit
)

// HashSampler deterministically derives pseudorandom matrices of ring
// elements from a 256-bit key and a byte-string tag. Two calls with the same
// key, tag and dimensions produce identical output, which lets distributed
// parties agree on common matrices without exchanging them.
//
// The (key, tag) pair is hashed with blake2b into the seed of a keyed PRNG;
// the PRNG stream is then mapped onto coefficients according to the selected
// distribution.
type HashSampler struct {
	key    [32]byte
	dist   HashDist
	params Parameters
}

// NewHashSampler creates a hash sampler over the given parameters.
func NewHashSampler(key [32]byte, dist HashDist, params Parameters) *HashSampler {
	return &HashSampler{key: key, dist: dist, params: params}
}

// SetKey replaces the sampler key.
func (s *HashSampler) SetKey(key [32]byte) { s.key = key }

// Key returns the sampler key.
func (s *HashSampler) Key() [32]byte { return s.key }

// SampleMatrix derives the rows x cols matrix of ring elements bound to tag.
func (s *HashSampler) SampleMatrix(tag []byte, rows, cols int) ([][]ring.Poly, error) {
	if rows < 1 || cols < 1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "hash sample: %d x %d matrix", rows, cols)
	}

	seed, err := blake2b.New256(s.key[:])
	if err != nil {
		return nil, errors.Wrap(err, "keyed blake2b")
	}
	seed.Write(tag)

	prng, err := sampling.NewKeyedPRNG(seed.Sum(nil))
	if err != nil {
		return nil, errors.Wrap(err, "keyed prng")
	}

	out := make([][]ring.Poly, rows)
	switch s.dist {
	case HashDistRing:
		uni := ring.NewUniformSampler(prng, s.params.ringQ)
		for i := range out {
			out[i] = make([]ring.Poly, cols)
			for j := range out[i] {
				out[i][j] = uni.ReadNew()
			}
		}
	case HashDistBit:
		bits := newSignSource(prng)
		n := s.params.ringQ.N()
		for i := range out {
			out[i] = make([]ring.Poly, cols)
			for j := range out[i] {
				p := s.params.ringQ.NewPoly()
				for c := 0; c < n; c++ {
					if bits.next() {
						p.Coeffs[0][c] = 1
					}
				}
				out[i][j] = p
			}
		}
	default:
		return nil, errors.Wrapf(ErrShapeMismatch, "hash sample: unknown distribution %d", s.dist)
	}
	return out, nil
}
