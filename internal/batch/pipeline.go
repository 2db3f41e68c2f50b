// Package batch anonymizes document datasets in bulk: CSV, JSON-lines or
// Parquet input, a JSON-lines output of redacted documents, and one exported
// mapping file per document. Every document gets its own engine run, so
// placeholder numbering restarts per document and runs stay independent.
package batch

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/anoncore/anoncore/internal/audit"
	"github.com/anoncore/anoncore/internal/engine"
	"github.com/anoncore/anoncore/internal/logger"
	"github.com/anoncore/anoncore/internal/mapping"
)

// Pipeline handles bulk anonymization of document datasets.
type Pipeline struct {
	engine     *engine.Engine
	auditStore *audit.Store // nil when auditing is disabled
	config     *Config
	logger     *logger.Logger
	stats      *ProcessingStats
	mu         sync.RWMutex
}

// NewPipeline creates a batch pipeline around an engine instance.
func NewPipeline(eng *engine.Engine, auditStore *audit.Store, config *Config, log *logger.Logger) *Pipeline {
	return &Pipeline{
		engine:     eng,
		auditStore: auditStore,
		config:     config,
		logger:     log,
		stats: &ProcessingStats{
			StartTime: time.Now(),
		},
	}
}

// ProcessFile processes a dataset file (CSV, Parquet, or JSON-lines).
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, error) {
	p.logger.Info("Starting batch pipeline",
		zap.String("file", filePath),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("workers", p.config.WorkerCount))

	start := time.Now()
	result := &ProcessingResult{}
	p.resetStats()

	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	if err := os.MkdirAll(p.config.MappingDir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create mapping directory: %w", err)
	}

	out, err := os.Create(p.config.OutputPath)
	if err != nil {
		return result, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()
	writer := bufio.NewWriter(out)
	defer writer.Flush()

	switch format {
	case FormatCSV:
		err = p.processCSV(ctx, filePath, writer, result)
	case FormatParquet:
		err = p.processParquet(ctx, filePath, writer, result)
	case FormatJSON:
		err = p.processJSON(ctx, filePath, writer, result)
	}
	if err != nil {
		return result, fmt.Errorf("%s processing failed: %w", format, err)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Batch pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("processed_ok", result.ProcessedOK),
		zap.Int64("processed_failed", result.ProcessedFailed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// processCSV processes CSV files with an id,text header.
func (p *Pipeline) processCSV(ctx context.Context, filePath string, w *bufio.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 2 // id, text

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	p.logger.Info("CSV header detected", zap.Strings("columns", header))

	return p.processBatches(ctx, func() ([]*DocumentRecord, error) {
		var batch []*DocumentRecord
		for len(batch) < p.config.BatchSize {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				continue
			}
			if len(record) != 2 {
				p.logger.Warn("Invalid CSV record length", zap.Int("length", len(record)))
				continue
			}

			doc := &DocumentRecord{
				ID:   strings.TrimSpace(record[0]),
				Text: record[1],
			}
			if p.validateRecord(doc) {
				batch = append(batch, doc)
			}
		}
		return batch, nil
	}, w, result)
}

// processParquet processes Parquet files
func (p *Pipeline) processParquet(ctx context.Context, filePath string, w *bufio.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.processBatches(ctx, func() ([]*DocumentRecord, error) {
		var batch []*DocumentRecord
		for len(batch) < p.config.BatchSize {
			var record DocumentRecord
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				continue
			}
			if p.validateRecord(&record) {
				batch = append(batch, &record)
			}
		}
		return batch, nil
	}, w, result)
}

// processJSON processes JSON files (one JSON object per line)
func (p *Pipeline) processJSON(ctx context.Context, filePath string, w *bufio.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.processBatches(ctx, func() ([]*DocumentRecord, error) {
		var batch []*DocumentRecord
		for len(batch) < p.config.BatchSize {
			var record DocumentRecord
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				continue
			}
			if p.validateRecord(&record) {
				batch = append(batch, &record)
			}
		}
		return batch, nil
	}, w, result)
}

// processBatches drains the reader function batch by batch.
func (p *Pipeline) processBatches(ctx context.Context, readBatch func() ([]*DocumentRecord, error), w *bufio.Writer, result *ProcessingResult) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break // End of file
		}

		if err := p.processBatch(ctx, batch, w, result); err != nil {
			p.logger.Error("Batch processing failed", zap.Error(err))
			result.ProcessedFailed += int64(len(batch))
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		result.TotalRecords += int64(len(batch))

		if p.config.ProgressReport > 0 && result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.reportProgress(result)
		}
	}

	return nil
}

// docOutput pairs a processed document with its mapping for the write step.
type docOutput struct {
	record   OutputRecord
	entities []engine.Entity
	hash     string
	elapsed  time.Duration
	err      error
}

// processBatch anonymizes one batch with a worker pool, then writes outputs
// sequentially in input order so reruns produce identical files.
func (p *Pipeline) processBatch(ctx context.Context, batch []*DocumentRecord, w *bufio.Writer, result *ProcessingResult) error {
	engineStart := time.Now()

	outputs := make([]docOutput, len(batch))
	jobs := make(chan int)

	workers := p.config.WorkerCount
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outputs[idx] = p.processDocument(batch[idx])
			}
		}()
	}

	for i := range batch {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	result.EngineTime += time.Since(engineStart)

	writeStart := time.Now()
	var auditRecords []*audit.Record
	for _, out := range outputs {
		if out.err != nil {
			result.ProcessedFailed++
			result.Errors = append(result.Errors, out.err.Error())
			continue
		}

		if err := p.writeOutput(w, out); err != nil {
			return err
		}
		result.ProcessedOK++

		if p.auditStore != nil {
			counts := make(audit.Counts)
			for _, e := range out.entities {
				counts[e.Type]++
			}
			auditRecords = append(auditRecords, &audit.Record{
				RunID:        uuid.NewString(),
				Mode:         string(engine.ModeAnon),
				TextHash:     out.hash,
				EntityCounts: counts,
				DurationMS:   out.elapsed.Milliseconds(),
			})
		}
	}
	result.WriteTime += time.Since(writeStart)

	if len(auditRecords) > 0 {
		auditStart := time.Now()
		if err := p.auditStore.BatchInsert(ctx, auditRecords); err != nil {
			p.logger.Warn("Audit batch insert failed", zap.Error(err))
		}
		result.AuditTime += time.Since(auditStart)
	}

	return nil
}

// processDocument runs one document through the engine.
func (p *Pipeline) processDocument(doc *DocumentRecord) docOutput {
	start := time.Now()
	res, err := p.engine.Anonymize(doc.Text, nil, nil)
	if err != nil {
		return docOutput{err: fmt.Errorf("document %s: %w", doc.ID, err)}
	}

	return docOutput{
		record: OutputRecord{
			ID:                doc.ID,
			PseudonymizedText: res.PseudonymizedText,
			EntityCount:       len(res.EntitiesFound),
		},
		entities: res.EntitiesFound,
		hash:     audit.HashText(res.OriginalText),
		elapsed:  time.Since(start),
	}
}

// writeOutput appends one output line and the document's mapping file.
func (p *Pipeline) writeOutput(w *bufio.Writer, out docOutput) error {
	line, err := json.Marshal(out.record)
	if err != nil {
		return fmt.Errorf("failed to marshal output record: %w", err)
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write output record: %w", err)
	}

	mappingData, err := mapping.Encode(out.entities)
	if err != nil {
		return fmt.Errorf("document %s: %w", out.record.ID, err)
	}
	mappingPath := filepath.Join(p.config.MappingDir, out.record.ID+".json")
	if err := os.WriteFile(mappingPath, mappingData, 0o600); err != nil {
		return fmt.Errorf("failed to write mapping file: %w", err)
	}

	return nil
}

// validateRecord validates a document record
func (p *Pipeline) validateRecord(record *DocumentRecord) bool {
	if !p.config.ValidateData {
		return true
	}

	if strings.TrimSpace(record.ID) == "" {
		p.logger.Debug("Invalid record: empty id")
		return false
	}

	if strings.TrimSpace(record.Text) == "" {
		p.logger.Debug("Invalid record: empty text", zap.String("id", record.ID))
		return false
	}

	if p.config.MaxTextBytes > 0 && len(record.Text) > p.config.MaxTextBytes {
		p.logger.Debug("Invalid record: text too long",
			zap.String("id", record.ID),
			zap.Int("length", len(record.Text)))
		return false
	}

	return true
}

// reportProgress reports current processing progress
func (p *Pipeline) reportProgress(result *ProcessingResult) {
	elapsed := time.Since(p.stats.StartTime)
	rate := float64(result.TotalRecords) / elapsed.Seconds()

	p.logger.Info("Processing progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("records_ok", result.ProcessedOK),
		zap.Int64("records_failed", result.ProcessedFailed),
		zap.Float64("rate_per_sec", rate),
		zap.Duration("elapsed", elapsed))
}

// resetStats resets processing statistics
func (p *Pipeline) resetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = &ProcessingStats{
		StartTime: time.Now(),
	}
}

// GetStats returns current processing statistics
func (p *Pipeline) GetStats() *ProcessingStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := *p.stats
	return &stats
}
