package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/anoncore/anoncore/internal/audit"
	"github.com/anoncore/anoncore/internal/batch"
	"github.com/anoncore/anoncore/internal/config"
	"github.com/anoncore/anoncore/internal/engine"
	"github.com/anoncore/anoncore/internal/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Input dataset file (CSV, Parquet, or JSON-lines) with id and text columns")
		outputFile = flag.String("output", "anonymized.jsonl", "Output file for pseudonymized documents")
		mappingDir = flag.String("mappings", "mappings", "Directory for per-document mapping files")
		batchSize  = flag.Int("batch-size", 500, "Batch size for processing")
		workers    = flag.Int("workers", 4, "Number of worker goroutines")
		skipAudit  = flag.Bool("skip-audit", false, "Skip writing audit records even if auditing is configured")
	)
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input expedientes.csv --output anon.jsonl\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input expedientes.parquet --workers 8\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting anoncore batch pipeline",
		zap.String("input", *inputFile),
		zap.String("output", *outputFile))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling operations...")
		cancel()
	}()

	eng, err := engine.New(cfg.Engine, log.WithComponent("engine"))
	if err != nil {
		log.Fatal("Failed to create engine", zap.Error(err))
	}

	var auditStore *audit.Store
	if cfg.Audit.Enabled && !*skipAudit {
		auditStore, err = audit.NewStore(cfg.Audit, log.WithComponent("audit"))
		if err != nil {
			log.Fatal("Failed to create audit store", zap.Error(err))
		}
		defer auditStore.Close()
	}

	pipeline := batch.NewPipeline(eng, auditStore, &batch.Config{
		BatchSize:      *batchSize,
		WorkerCount:    *workers,
		ValidateData:   true,
		ProgressReport: 1000,
		MaxTextBytes:   1 << 20,
		OutputPath:     *outputFile,
		MappingDir:     *mappingDir,
	}, log.WithComponent("batch"))

	result, err := pipeline.ProcessFile(ctx, *inputFile)
	if err != nil {
		log.Fatal("Batch processing failed", zap.Error(err))
	}

	summary, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(summary))

	log.Info("Batch pipeline completed successfully")
}
