package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/codyseavey/tcg-scanner/internal/bootstrap"
	"github.com/codyseavey/tcg-scanner/internal/config"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("tcg-scanner")
	var (
		configPath  = fs.StringLong("config", "scanner.toml", "Path to the TOML config file")
		listen      = fs.StringLong("listen", "", "HTTP listen address (overrides server.listen)")
		ocr         = fs.StringLong("ocr", "", "OCR provider: gemini, tesseract or auto (overrides scan.ocr_provider)")
		debug       = fs.BoolLong("debug", "Log per-scan details")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("TCG_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, exists, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !exists {
		log.Printf("Config file %s not found, using defaults", *configPath)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *ocr != "" {
		cfg.Scan.OCRProvider = strings.ToLower(*ocr)
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid --ocr: %v", err)
		}
	}
	if *debug {
		cfg.Scan.Debug = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	if app.PriceWorker != nil {
		go app.PriceWorker.Start(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("tcg-scanner %s listening on %s", version, cfg.Server.Listen)
		if app.Auth.Enabled() {
			log.Println("Admin authentication enabled")
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			cancel()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
