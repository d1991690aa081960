// Package bgg implements the BGG+ attribute encoding over a Ring-LWE ring.
//
// A public matrix B of uniformly random ring elements encodes a boolean
// attribute vector x row by row as B[i] + x[i]*G, where G is the binary gadget
// vector. Boolean gates (addition, multiplication) can then be evaluated
// homomorphically twice over: once on the public matrix itself (AddGate,
// MulGate) and once on the ciphertext encoding through the evaluation
// matrices (Evaluator.AddMatrix, Evaluator.MulMatrix), with both sides agreeing
// exactly up to the evaluated attribute function times the gadget vector:
//
//	(ct[i1] | ct[i2]) * H_f = B_f + f(x[i1], x[i2]) * G
//
// This identity holds over the noiseless encodings, which is what makes the
// encoding usable as the computational core of attribute-based encryption and
// obfuscation constructions.
//
// This implementation is built on lattigo primitives:
//   - ring arithmetic over a single NTT-friendly prime modulus
//   - uniform and discrete Gaussian polynomial samplers
//   - keyed blake2b PRNGs for deterministic sampling
//
// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause
package bgg

import "github.com/pkg/errors"

// Common errors.
var (
	// ErrNoCompatiblePrime is returned when no NTT-friendly prime of the
	// requested bit length exists for the requested ring degree.
	ErrNoCompatiblePrime = errors.New("no compatible NTT-friendly prime")

	// ErrShapeMismatch is returned when a vector or matrix argument violates
	// the dimension preconditions of an operation.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrCoeffTooLarge is returned by BitDecompose when a coefficient does not
	// fit in the modulus bit length, since decomposing it would silently
	// truncate its high bits.
	ErrCoeffTooLarge = errors.New("coefficient exceeds modulus bit length")
)
