// Command bgg-server runs the attribute-encoding HTTP service.
//
// Run:
//
//	bgg-server -addr :8448 -logn 12 -bits 51 -attrs 7
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lattica/bgg"
	"github.com/lattica/bgg/server"
)

func main() {
	var (
		addr       = flag.String("addr", ":8448", "HTTP server address")
		logN       = flag.Int("logn", 12, "log2 of the ring size")
		bits       = flag.Int("bits", 51, "requested modulus bit length")
		attrs      = flag.Int("attrs", 7, "number of attributes")
		capacityMB = flag.Int64("capacity", 256, "artifact store capacity in MB")
	)
	flag.Parse()

	log.Printf("Encoding server starting...")
	log.Printf("  Address: %s", *addr)
	log.Printf("  Ring: 2^%d", *logN)
	log.Printf("  Modulus bits: %d", *bits)
	log.Printf("  Attributes: %d", *attrs)

	cfg := server.Config{
		Address: *addr,
		Params: bgg.ParametersLiteral{
			LogRingSize: *logN,
			ModulusBits: *bits,
			Attributes:  *attrs,
		},
		StorageCapacityMB: *capacityMB,
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Encoding server listening on %s", cfg.Address)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down encoding server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	fmt.Println("Encoding server stopped")
}
