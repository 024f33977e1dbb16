package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/loykin/onceup"
	"github.com/loykin/onceup/internal/logger"
	"github.com/loykin/onceup/internal/metrics"
	"github.com/loykin/onceup/internal/script"
)

func loadRunner(configPath string) (*onceup.Runner, func(), error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("config file required. Use --config=onceup.toml or provide as argument")
	}
	cfg, err := onceup.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}

	log, closer := logger.Setup(cfg.Log, "onceup")
	r, err := onceup.New(cfg, log)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		_ = r.Close()
		if closer != nil {
			_ = closer.Close()
		}
	}
	return r, cleanup, nil
}

func runActivation(configPath string) error {
	r, cleanup, err := loadRunner(configPath)
	if err != nil {
		return err
	}
	defer cleanup()
	return r.Activate(context.Background())
}

func runStatus(configPath, name string) error {
	r, cleanup, err := loadRunner(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if name != "" {
		rec, err := r.Record(ctx, name)
		if err != nil {
			return err
		}
		printJSON(rec)
		return nil
	}
	recs, err := r.Records(ctx)
	if err != nil {
		return err
	}
	printJSON(recs)
	return nil
}

func runReset(configPath, name string) error {
	r, cleanup, err := loadRunner(configPath)
	if err != nil {
		return err
	}
	defer cleanup()
	return r.Reset(context.Background(), name)
}

func runScripts() error {
	names := script.Names()
	sort.Strings(names)
	printJSON(names)
	return nil
}

func runServe(configPath string, flags *ServeFlags) error {
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=onceup.toml or provide as argument")
	}
	cfg, err := onceup.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log, closer := logger.Setup(cfg.Log, "onceup")
	defer func() {
		if closer != nil {
			_ = closer.Close()
		}
	}()

	r, err := onceup.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	listen := flags.Listen
	if listen == "" {
		listen = cfg.Server.Listen
	}
	if listen == "" {
		listen = "127.0.0.1:8321"
	}
	basePath := flags.BasePath
	if basePath == "" {
		basePath = cfg.Server.BasePath
	}
	if basePath == "" {
		basePath = "/api"
	}

	mux := http.NewServeMux()
	mux.Handle("/", onceup.NewHTTPHandler(basePath, r))
	if flags.Metrics {
		if err := onceup.RegisterMetricsDefault(); err != nil {
			return err
		}
		mux.Handle("/metrics", metrics.Handler())
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("admin API listening", "addr", listen, "base_path", basePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
