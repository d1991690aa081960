// Command bgg-worker runs gate-evaluation workers.
//
// Workers pop jobs from a Redis queue, load the referenced public key and
// attribute ciphertext from storage, evaluate the requested gate on both the
// key side and the ciphertext side, and store the two result rows back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tuneinsight/lattigo/v6/ring"

	"github.com/lattica/bgg"
	"github.com/lattica/bgg/internal/queue"
	"github.com/lattica/bgg/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		numWorkers  = flag.Int("workers", 4, "number of worker goroutines")
		redisAddr   = flag.String("redis", "localhost:6379", "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		queueName   = flag.String("queue", "default", "queue name")
		storagePath = flag.String("storage", "/tmp/bgg-storage", "encoding storage path")
		metricsAddr = flag.String("metrics", ":9090", "metrics server address")
	)
	flag.Parse()

	log.Printf("Gate worker starting...")
	log.Printf("  Workers: %d", *numWorkers)
	log.Printf("  Redis: %s", *redisAddr)
	log.Printf("  Storage: %s", *storagePath)
	log.Printf("  Metrics: %s", *metricsAddr)

	// Queue.
	q, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr: *redisAddr,
		DB:   *redisDB,
	}, *queueName)
	if err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	defer q.Close()

	// Storage.
	store, err := storage.NewFileStorage(*storagePath)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	// Worker pool.
	pool := &WorkerPool{
		numWorkers: *numWorkers,
		queue:      q,
		storage:    store,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	// Metrics server.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "# HELP bgg_gate_evaluations_total Total gate evaluations\n")
		fmt.Fprintf(w, "# TYPE bgg_gate_evaluations_total counter\n")
		fmt.Fprintf(w, "bgg_gate_evaluations_total{status=\"success\"} %d\n", pool.successCount.Load())
		fmt.Fprintf(w, "bgg_gate_evaluations_total{status=\"failure\"} %d\n", pool.failureCount.Load())
	})

	server := &http.Server{
		Addr:    *metricsAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server starting on %s", *metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("Received signal: %s", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Metrics server shutdown error: %v", err)
	}

	if err := pool.Stop(); err != nil {
		log.Printf("Worker pool shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

// WorkerPool manages a pool of gate-evaluation workers.
type WorkerPool struct {
	numWorkers   int
	queue        queue.Queue
	storage      storage.Storage
	wg           sync.WaitGroup
	cancel       context.CancelFunc
	running      atomic.Bool
	successCount atomic.Int64
	failureCount atomic.Int64
}

// Start starts the worker pool.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.running.Load() {
		return errors.New("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.running.Store(true)

	log.Printf("Starting %d workers", p.numWorkers)

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	return nil
}

// Stop gracefully stops the worker pool.
func (p *WorkerPool) Stop() error {
	if !p.running.Load() {
		return nil
	}

	log.Println("Stopping worker pool...")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Worker pool stopped")
	case <-time.After(30 * time.Second):
		log.Println("Shutdown timeout exceeded")
		return errors.New("shutdown timeout")
	}

	p.running.Store(false)
	return nil
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log.Printf("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d stopping", id)
			return
		default:
		}

		job, err := p.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("Worker %d: failed to pop job: %v", id, err)
			time.Sleep(time.Second)
			continue
		}

		p.processJob(ctx, id, job)
	}
}

func (p *WorkerPool) processJob(ctx context.Context, workerID int, job *queue.Job) {
	log.Printf("Worker %d: processing job %s (gate=%d, idx=%d,%d)", workerID, job.ID, job.Gate, job.Idx1, job.Idx2)

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		log.Printf("Worker %d: failed to update job status: %v", workerID, err)
	}

	params, keyRow, evalRow, err := p.evaluate(ctx, job)
	if err != nil {
		p.fail(ctx, job, err)
		return
	}

	keyHandle, err := p.storeRow(ctx, params, keyRow)
	if err != nil {
		p.fail(ctx, job, fmt.Errorf("store key result: %w", err))
		return
	}
	evalHandle, err := p.storeRow(ctx, params, evalRow)
	if err != nil {
		p.fail(ctx, job, fmt.Errorf("store evaluation result: %w", err))
		return
	}

	job.KeyResultHandle = string(keyHandle)
	job.EvalResultHandle = string(evalHandle)
	job.Status = queue.StatusCompleted
	if err := p.queue.Update(ctx, job); err != nil {
		log.Printf("Worker %d: failed to update completed job: %v", workerID, err)
	}

	p.successCount.Add(1)
}

func (p *WorkerPool) fail(ctx context.Context, job *queue.Job, err error) {
	job.Status = queue.StatusFailed
	job.Error = err.Error()
	p.queue.Update(ctx, job)
	p.failureCount.Add(1)
}

// evaluate loads the job's artifacts and computes the key-side gate row and
// the ciphertext-side evaluation product.
func (p *WorkerPool) evaluate(ctx context.Context, job *queue.Job) (bgg.Parameters, []ring.Poly, []ring.Poly, error) {
	pkData, err := p.storage.Load(ctx, storage.Handle(job.PublicKeyHandle))
	if err != nil {
		return bgg.Parameters{}, nil, nil, fmt.Errorf("load public key: %w", err)
	}
	pk := new(bgg.PublicKey)
	if err := pk.UnmarshalBinary(pkData); err != nil {
		return bgg.Parameters{}, nil, nil, fmt.Errorf("unmarshal public key: %w", err)
	}

	ctData, err := p.storage.Load(ctx, storage.Handle(job.CiphertextHandle))
	if err != nil {
		return bgg.Parameters{}, nil, nil, fmt.Errorf("load ciphertext: %w", err)
	}
	ct := new(bgg.Ciphertext)
	if err := ct.UnmarshalBinary(ctData); err != nil {
		return bgg.Parameters{}, nil, nil, fmt.Errorf("unmarshal ciphertext: %w", err)
	}

	params := pk.Params()
	if !ct.Params().Equal(params) {
		return bgg.Parameters{}, nil, nil, errors.New("ciphertext and public key parameters differ")
	}
	for _, i := range []int{job.Idx1, job.Idx2} {
		if i < 0 || i > params.Ell() {
			return bgg.Parameters{}, nil, nil, fmt.Errorf("attribute index %d out of range [0, %d]", i, params.Ell())
		}
	}
	if len(job.Attributes) != params.Ell()+1 {
		return bgg.Parameters{}, nil, nil, fmt.Errorf("%d attributes, want %d", len(job.Attributes), params.Ell()+1)
	}

	eval := bgg.NewEvaluator(params)

	var (
		keyRow []ring.Poly
		h      [][]ring.Poly
	)
	switch job.Gate {
	case queue.GateAdd:
		keyRow = pk.AddGate(job.Idx1, job.Idx2)
		h = eval.AddMatrix()
	case queue.GateMul:
		keyRow = pk.MulGate(job.Idx1, job.Idx2)
		h, err = eval.MulMatrix(pk.B[job.Idx1], job.Attributes[job.Idx2])
		if err != nil {
			return bgg.Parameters{}, nil, nil, err
		}
	default:
		return bgg.Parameters{}, nil, nil, fmt.Errorf("unknown gate kind %d", job.Gate)
	}

	concat := append(append([]ring.Poly{}, ct.Row(job.Idx1)...), ct.Row(job.Idx2)...)
	evalRow, err := bgg.VecMatMul(params.RingQ(), concat, h)
	if err != nil {
		return bgg.Parameters{}, nil, nil, err
	}

	return params, keyRow, evalRow, nil
}

func (p *WorkerPool) storeRow(ctx context.Context, params bgg.Parameters, row []ring.Poly) (storage.Handle, error) {
	data, err := bgg.MarshalRow(params, row)
	if err != nil {
		return "", err
	}
	return p.storage.Store(ctx, data)
}
