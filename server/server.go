// Package server provides the HTTP attribute-encoding service.
//
// The server holds one public-key matrix at a time. Clients run setup, encode
// attribute vectors against the current key, and request gate evaluations:
// key-side gate rows computed from the public key alone, and ciphertext-side
// evaluation products computed from a stored encoding. All large artifacts
// are stored by content handle and fetched separately.
package server

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/tuneinsight/lattigo/v6/ring"
	"github.com/tuneinsight/lattigo/v6/utils/sampling"

	"github.com/lattica/bgg"
	"github.com/lattica/bgg/internal/storage"
)

// Config holds server configuration.
type Config struct {
	Address string
	Params  bgg.ParametersLiteral
	// StorageCapacityMB bounds the in-memory artifact store.
	StorageCapacityMB int64
}

// Server is the attribute-encoding server.
type Server struct {
	cfg    Config
	params bgg.Parameters
	eval   *bgg.Evaluator
	store  storage.Storage

	mu sync.RWMutex
	pk *bgg.PublicKey
}

// New creates a new encoding server.
func New(cfg Config) (*Server, error) {
	params, err := bgg.NewParametersFromLiteral(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("create parameters: %w", err)
	}

	if cfg.StorageCapacityMB <= 0 {
		cfg.StorageCapacityMB = 256
	}

	return &Server{
		cfg:    cfg,
		params: params,
		eval:   bgg.NewEvaluator(params),
		store:  storage.NewMemoryStorage(cfg.StorageCapacityMB),
	}, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/params", s.handleParams)

	mux.HandleFunc("/setup", s.handleSetup)
	mux.HandleFunc("/publickey", s.handlePublicKey)

	mux.HandleFunc("/encode", s.handleEncode)
	mux.HandleFunc("/gate", s.handleGate)
	mux.HandleFunc("/evaluate", s.handleEvaluate)

	mux.HandleFunc("/artifact", s.handleArtifact)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.pk != nil
	s.mu.RUnlock()

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     "ok",
		"ready":      ready,
		"ring":       s.params.N(),
		"attributes": s.params.Ell(),
	})
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"log_ring_size": s.params.LogRingSize(),
		"ring_size":     s.params.N(),
		"modulus":       s.params.Q(),
		"modulus_bits":  s.params.K(),
		"gadget_width":  s.params.M(),
		"attributes":    s.params.Ell(),
	})
}

// SetupRequest is the request for public-key generation. An optional hex seed
// makes the key reproducible; without one the key is sampled from a fresh
// system PRNG.
type SetupRequest struct {
	Seed string `json:"seed,omitempty"`
}

// SetupResponse returns the handle of the stored public key.
type SetupResponse struct {
	Handle string `json:"handle"`
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req SetupRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	prng, err := newPRNG(req.Seed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pk := bgg.NewPublicKey(s.params, prng)

	data, err := pk.MarshalBinary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	handle, err := s.store.Store(r.Context(), data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.pk = pk
	s.mu.Unlock()

	json.NewEncoder(w).Encode(SetupResponse{Handle: string(handle)})
}

func (s *Server) handlePublicKey(w http.ResponseWriter, r *http.Request) {
	pk, err := s.currentKey()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	data, err := pk.MarshalBinary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// EncodeRequest is the request for encoding an attribute vector.
type EncodeRequest struct {
	Attributes []uint64 `json:"attributes"`
	Seed       string   `json:"seed,omitempty"`
}

// EncodeResponse returns the handle of the stored ciphertext.
type EncodeResponse struct {
	Handle string `json:"handle"`
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req EncodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pk, err := s.currentKey()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	prng, err := newPRNG(req.Seed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ct, err := bgg.NewCiphertext(pk, req.Attributes, prng)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := ct.MarshalBinary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	handle, err := s.store.Store(r.Context(), data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(EncodeResponse{Handle: string(handle)})
}

// GateRequest is the request for a key-side gate row.
type GateRequest struct {
	Gate string `json:"gate"` // "add" or "mul"
	Idx1 int    `json:"idx1"`
	Idx2 int    `json:"idx2"`
}

// GateResponse returns the handle of the stored gate row.
type GateResponse struct {
	Handle string `json:"handle"`
}

func (s *Server) handleGate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req GateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pk, err := s.currentKey()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if err := s.checkIndices(req.Idx1, req.Idx2); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var row []ring.Poly
	switch req.Gate {
	case "add":
		row = pk.AddGate(req.Idx1, req.Idx2)
	case "mul":
		row = pk.MulGate(req.Idx1, req.Idx2)
	default:
		http.Error(w, fmt.Sprintf("unknown gate %q", req.Gate), http.StatusBadRequest)
		return
	}

	data, err := bgg.MarshalRow(s.params, row)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	handle, err := s.store.Store(r.Context(), data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(GateResponse{Handle: string(handle)})
}

// EvaluateRequest is the request for a ciphertext-side gate evaluation. The
// attribute vector is public and selects the multiplication H-matrix.
type EvaluateRequest struct {
	CiphertextHandle string   `json:"ciphertext_handle"`
	Gate             string   `json:"gate"`
	Idx1             int      `json:"idx1"`
	Idx2             int      `json:"idx2"`
	Attributes       []uint64 `json:"attributes"`
}

// EvaluateResponse returns handles for the evaluation product and the
// matching key-side gate row.
type EvaluateResponse struct {
	ResultHandle string `json:"result_handle"`
	KeyHandle    string `json:"key_handle"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pk, err := s.currentKey()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if err := s.checkIndices(req.Idx1, req.Idx2); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Attributes) != s.params.Ell()+1 {
		http.Error(w, fmt.Sprintf("%d attributes, want %d", len(req.Attributes), s.params.Ell()+1), http.StatusBadRequest)
		return
	}

	ctData, err := s.store.Load(r.Context(), storage.Handle(req.CiphertextHandle))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	ct := new(bgg.Ciphertext)
	if err := ct.UnmarshalBinary(ctData); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !ct.Params().Equal(s.params) {
		http.Error(w, "ciphertext parameters do not match server parameters", http.StatusBadRequest)
		return
	}

	result, keyRow, err := s.evaluateGate(pk, ct, req.Gate, req.Idx1, req.Idx2, req.Attributes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resultData, err := bgg.MarshalRow(s.params, result)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resultHandle, err := s.store.Store(r.Context(), resultData)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	keyData, err := bgg.MarshalRow(s.params, keyRow)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	keyHandle, err := s.store.Store(r.Context(), keyData)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(EvaluateResponse{
		ResultHandle: string(resultHandle),
		KeyHandle:    string(keyHandle),
	})
}

// evaluateGate computes both sides of the gate: the ciphertext-side product
// concat(ct[i1], ct[i2])·H and the key-side row the product is checked
// against.
func (s *Server) evaluateGate(pk *bgg.PublicKey, ct *bgg.Ciphertext, gate string, i1, i2 int, x []uint64) ([]ring.Poly, []ring.Poly, error) {
	var (
		h      [][]ring.Poly
		keyRow []ring.Poly
		err    error
	)

	switch gate {
	case "add":
		h = s.eval.AddMatrix()
		keyRow = pk.AddGate(i1, i2)
	case "mul":
		h, err = s.eval.MulMatrix(pk.B[i1], x[i2])
		if err != nil {
			return nil, nil, err
		}
		keyRow = pk.MulGate(i1, i2)
	default:
		return nil, nil, fmt.Errorf("unknown gate %q", gate)
	}

	concat := append(append([]ring.Poly{}, ct.Row(i1)...), ct.Row(i2)...)
	result, err := bgg.VecMatMul(s.params.RingQ(), concat, h)
	if err != nil {
		return nil, nil, err
	}

	return result, keyRow, nil
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		http.Error(w, "handle required", http.StatusBadRequest)
		return
	}

	data, err := s.store.Load(r.Context(), storage.Handle(handle))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (s *Server) currentKey() (*bgg.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pk == nil {
		return nil, fmt.Errorf("no public key, run /setup first")
	}
	return s.pk, nil
}

func (s *Server) checkIndices(i1, i2 int) error {
	for _, i := range []int{i1, i2} {
		if i < 0 || i > s.params.Ell() {
			return fmt.Errorf("attribute index %d out of range [0, %d]", i, s.params.Ell())
		}
	}
	return nil
}

func newPRNG(seed string) (sampling.PRNG, error) {
	if seed == "" {
		return sampling.NewPRNG()
	}
	key, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return sampling.NewKeyedPRNG(key)
}
