// Copyright (c) 2025, Lattica Labs
// SPDX-License-Identifier: BSD-3-Clause

package bgg

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math/bits"

	"github.com/tuneinsight/lattigo/v6/ring"
)

// Encodings cross the wire in coefficient form; rings are rebuilt from
// (logN, q) on decode, so the receiving side never re-runs the prime search.

type parametersData struct {
	LogN int
	Ell  int
	Q    uint64
}

type publicKeyData struct {
	Params parametersData
	B      [][][]uint64
}

type ciphertextData struct {
	Params parametersData
	Inner  [][][]uint64
	Secret []uint64
	E      [][][]uint64
}

// MarshalBinary serializes the parameters.
func (p Parameters) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p.data()); err != nil {
		return nil, fmt.Errorf("serialize parameters: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the parameters.
func (p *Parameters) UnmarshalBinary(data []byte) error {
	var pd parametersData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&pd); err != nil {
		return fmt.Errorf("deserialize parameters: %w", err)
	}
	params, err := pd.build()
	if err != nil {
		return err
	}
	*p = params
	return nil
}

func (p Parameters) data() parametersData {
	return parametersData{LogN: p.logN, Ell: p.ell, Q: p.q}
}

func (pd parametersData) build() (Parameters, error) {
	// Decoded fields are untrusted; bound them before they reach a shift or
	// an allocation.
	if pd.LogN < 4 || pd.LogN > 20 {
		return Parameters{}, fmt.Errorf("deserialize parameters: log ring size %d out of range [4, 20]", pd.LogN)
	}
	if pd.Ell < 1 {
		return Parameters{}, fmt.Errorf("deserialize parameters: attribute count %d, want at least 1", pd.Ell)
	}
	ringQ, err := ring.NewRing(1<<pd.LogN, []uint64{pd.Q})
	if err != nil {
		return Parameters{}, fmt.Errorf("rebuild ring: %w", err)
	}
	k := bits.Len64(pd.Q)
	m := k + 2
	return Parameters{
		logN:  pd.LogN,
		ell:   pd.Ell,
		k:     k,
		m:     m,
		q:     pd.Q,
		ringQ: ringQ,
		g:     gadgetVector(ringQ, m),
	}, nil
}

// MarshalBinary serializes the public key, parameters included.
func (pk *PublicKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	data := publicKeyData{
		Params: pk.params.data(),
		B:      matrixCoeffs(pk.B),
	}
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("serialize public key: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the public key.
func (pk *PublicKey) UnmarshalBinary(data []byte) error {
	var pkd publicKeyData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&pkd); err != nil {
		return fmt.Errorf("deserialize public key: %w", err)
	}

	params, err := pkd.Params.build()
	if err != nil {
		return err
	}

	b, err := matrixPolys(params, pkd.B, params.ell+1)
	if err != nil {
		return fmt.Errorf("deserialize public key: %w", err)
	}

	pk.params = params
	pk.B = b
	return nil
}

// MarshalBinary serializes the ciphertext, secret and error included. The
// encoding is for trusted storage; it is not a public artifact.
func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	data := ciphertextData{
		Params: ct.params.data(),
		Inner:  matrixCoeffs(ct.inner),
		Secret: append([]uint64(nil), ct.secret.Coeffs[0]...),
		E:      matrixCoeffs(ct.e),
	}
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("serialize ciphertext: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the ciphertext.
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	var ctd ciphertextData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ctd); err != nil {
		return fmt.Errorf("deserialize ciphertext: %w", err)
	}

	params, err := ctd.Params.build()
	if err != nil {
		return err
	}

	inner, err := matrixPolys(params, ctd.Inner, params.ell+1)
	if err != nil {
		return fmt.Errorf("deserialize ciphertext inner: %w", err)
	}
	e, err := matrixPolys(params, ctd.E, params.ell+1)
	if err != nil {
		return fmt.Errorf("deserialize ciphertext error: %w", err)
	}
	if len(ctd.Secret) != params.ringQ.N() {
		return fmt.Errorf("deserialize ciphertext secret: %d coefficients, want %d", len(ctd.Secret), params.ringQ.N())
	}

	secret := params.ringQ.NewPoly()
	copy(secret.Coeffs[0], ctd.Secret)

	ct.params = params
	ct.inner = inner
	ct.secret = secret
	ct.e = e
	return nil
}

type rowData struct {
	Params parametersData
	Row    [][]uint64
}

// MarshalRow serializes a single row of ring elements, such as a gate operator
// output or an evaluation product, together with its parameters.
func MarshalRow(params Parameters, row []ring.Poly) ([]byte, error) {
	coeffs := make([][]uint64, len(row))
	for j := range row {
		coeffs[j] = append([]uint64(nil), row[j].Coeffs[0]...)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rowData{Params: params.data(), Row: coeffs}); err != nil {
		return nil, fmt.Errorf("serialize row: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalRow deserializes a row produced by MarshalRow.
func UnmarshalRow(data []byte) (Parameters, []ring.Poly, error) {
	var rd rowData
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rd); err != nil {
		return Parameters{}, nil, fmt.Errorf("deserialize row: %w", err)
	}
	params, err := rd.Params.build()
	if err != nil {
		return Parameters{}, nil, err
	}
	n := params.ringQ.N()
	row := make([]ring.Poly, len(rd.Row))
	for j := range rd.Row {
		if len(rd.Row[j]) != n {
			return Parameters{}, nil, fmt.Errorf("deserialize row entry %d: %d coefficients, want %d", j, len(rd.Row[j]), n)
		}
		row[j] = params.ringQ.NewPoly()
		copy(row[j].Coeffs[0], rd.Row[j])
	}
	return params, row, nil
}

func matrixCoeffs(mat [][]ring.Poly) [][][]uint64 {
	out := make([][][]uint64, len(mat))
	for i := range mat {
		out[i] = make([][]uint64, len(mat[i]))
		for j := range mat[i] {
			out[i][j] = append([]uint64(nil), mat[i][j].Coeffs[0]...)
		}
	}
	return out
}

func matrixPolys(params Parameters, coeffs [][][]uint64, rows int) ([][]ring.Poly, error) {
	if len(coeffs) != rows {
		return nil, fmt.Errorf("%d rows, want %d", len(coeffs), rows)
	}
	n := params.ringQ.N()
	out := make([][]ring.Poly, rows)
	for i := range coeffs {
		if len(coeffs[i]) != params.m {
			return nil, fmt.Errorf("row %d: %d columns, want %d", i, len(coeffs[i]), params.m)
		}
		out[i] = make([]ring.Poly, params.m)
		for j := range coeffs[i] {
			if len(coeffs[i][j]) != n {
				return nil, fmt.Errorf("entry (%d, %d): %d coefficients, want %d", i, j, len(coeffs[i][j]), n)
			}
			out[i][j] = params.ringQ.NewPoly()
			copy(out[i][j].Coeffs[0], coeffs[i][j])
		}
	}
	return out, nil
}
