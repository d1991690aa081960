// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"testing"

	"github.com/tuneinsight/lattigo/v6/utils/sampling"
)

func benchSetup(b *testing.B) (Parameters, *PublicKey, *Ciphertext) {
	b.Helper()

	params, err := NewParametersFromLiteral(PN12QP51L7)
	if err != nil {
		b.Fatal(err)
	}

	prng, err := sampling.NewKeyedPRNG([]byte("bench"))
	if err != nil {
		b.Fatal(err)
	}
	pk := NewPublicKey(params, prng)

	ct, err := NewCiphertext(pk, []uint64{1, 0, 1, 1, 0, 1, 0, 1}, prng)
	if err != nil {
		b.Fatal(err)
	}

	return params, pk, ct
}

func BenchmarkPublicKeyGen(b *testing.B) {
	params, err := NewParametersFromLiteral(PN12QP51L7)
	if err != nil {
		b.Fatal(err)
	}
	prng, err := sampling.NewKeyedPRNG([]byte("bench"))
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewPublicKey(params, prng)
	}
}

func BenchmarkEncode(b *testing.B) {
	_, pk, _ := benchSetup(b)
	prng, err := sampling.NewKeyedPRNG([]byte("bench-encode"))
	if err != nil {
		b.Fatal(err)
	}
	x := []uint64{1, 0, 1, 1, 0, 1, 0, 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := NewCiphertext(pk, x, prng); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAddGate(b *testing.B) {
	_, pk, _ := benchSetup(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pk.AddGate(1, 2)
	}
}

func BenchmarkMulGate(b *testing.B) {
	_, pk, _ := benchSetup(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pk.MulGate(1, 2)
	}
}

func BenchmarkMulEvaluation(b *testing.B) {
	params, pk, ct := benchSetup(b)
	eval := NewEvaluator(params)

	h, err := eval.MulMatrix(pk.B[1], 0)
	if err != nil {
		b.Fatal(err)
	}
	concat := concatRows(ct, 1, 2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := VecMatMul(params.RingQ(), concat, h); err != nil {
			b.Fatal(err)
		}
	}
}
