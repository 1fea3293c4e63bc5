package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"aiworld.dev/internal/auth"
	"aiworld.dev/internal/httpapi"
	"aiworld.dev/internal/persistence/state"
	"aiworld.dev/internal/transport/ws"
	"aiworld.dev/internal/tuning"
	"aiworld.dev/internal/world"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		publicURL  = flag.String("public_url", "http://localhost:8080", "base URL used in claim links")
		legacyURL  = flag.String("legacy_verify_url", "", "legacy verification service base URL (empty to disable)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	_ = os.MkdirAll(*dataDir, 0o755)
	statePath := filepath.Join(*dataDir, "world.json.zst")
	registryPath := filepath.Join(*dataDir, "agents.db")

	registry, err := auth.OpenRegistry(registryPath)
	if err != nil {
		logger.Fatalf("open agent registry: %v", err)
	}
	defer registry.Close()

	ctx, cancel := signalContext()
	defer cancel()

	// State writer: the world hands over full documents, disk I/O stays off
	// the loop.
	sink := make(chan state.DocumentV1, 2)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case doc := <-sink:
				if err := state.Write(statePath, doc); err != nil {
					logger.Printf("state write: %v", err)
					continue
				}
				logger.Printf("state saved (%d blocks, %d zones)", len(doc.Blocks), len(doc.Zones))
			}
		}
	}()

	w := world.New(world.ConfigFromTuning(tune), logger, sink)
	if doc, err := state.Read(statePath); err == nil {
		w.ImportDocument(doc)
		logger.Printf("resumed world from %s (saved %s)", statePath,
			time.UnixMilli(doc.SavedAt).UTC().Format(time.RFC3339))
	} else if !os.IsNotExist(err) {
		logger.Fatalf("read world state: %v", err)
	}

	worldCtx, worldCancel := context.WithCancel(context.Background())
	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		w.Run(worldCtx)
	}()

	resolver := &auth.Resolver{
		Registry:     registry,
		BypassSecret: strings.TrimSpace(os.Getenv("AIWORLD_BYPASS_SECRET")),
		ClaimBaseURL: strings.TrimRight(*publicURL, "/"),
	}
	if *legacyURL != "" {
		resolver.Legacy = &auth.LegacyVerifier{BaseURL: strings.TrimRight(*legacyURL, "/")}
	}

	mux := http.NewServeMux()
	api := &httpapi.Handler{World: w, Registry: registry, Log: logger}
	api.Register(mux)
	mux.HandleFunc("GET /metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := w.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP aiworld_agents Connected agents.\n")
		fmt.Fprintf(rw, "# TYPE aiworld_agents gauge\n")
		fmt.Fprintf(rw, "aiworld_agents %d\n", m.Agents)

		fmt.Fprintf(rw, "# HELP aiworld_observers Connected observers.\n")
		fmt.Fprintf(rw, "# TYPE aiworld_observers gauge\n")
		fmt.Fprintf(rw, "aiworld_observers %d\n", m.Observers)

		fmt.Fprintf(rw, "# HELP aiworld_blocks Blocks in the world.\n")
		fmt.Fprintf(rw, "# TYPE aiworld_blocks gauge\n")
		fmt.Fprintf(rw, "aiworld_blocks %d\n", m.Blocks)
	})
	mux.Handle("GET /ws", ws.NewServer(w, resolver, logger,
		time.Duration(tune.RateLimit.WindowMs)*time.Millisecond, tune.RateLimit.Max))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Final flush: take one last document while the loop is still running,
	// then stop it.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if doc, err := w.ExportDocument(ctx2); err != nil {
		logger.Printf("final export: %v", err)
	} else if err := state.Write(statePath, doc); err != nil {
		logger.Printf("final state write: %v", err)
	} else {
		logger.Printf("final state saved")
	}
	worldCancel()
	<-worldDone
	logger.Printf("bye")
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
