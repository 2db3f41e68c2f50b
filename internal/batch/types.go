package batch

import (
	"strings"
	"time"
)

// DocumentRecord represents a single document from the input dataset
type DocumentRecord struct {
	ID   string `csv:"id" parquet:"id" json:"id"`
	Text string `csv:"text" parquet:"text" json:"text"`
}

// OutputRecord is one line of the pseudonymized output file. The mapping for
// each document is written separately, one file per document, because it is
// the only artifact that can reverse the run.
type OutputRecord struct {
	ID                string `json:"id"`
	PseudonymizedText string `json:"pseudonymizedText"`
	EntityCount       int    `json:"entityCount"`
}

// ProcessingResult represents the result of processing a dataset
type ProcessingResult struct {
	TotalRecords    int64         `json:"total_records"`
	ProcessedOK     int64         `json:"processed_ok"`
	ProcessedFailed int64         `json:"processed_failed"`
	Duration        time.Duration `json:"duration"`
	EngineTime      time.Duration `json:"engine_time"`
	WriteTime       time.Duration `json:"write_time"`
	AuditTime       time.Duration `json:"audit_time"`
	Errors          []string      `json:"errors,omitempty"`
}

// Config contains batch pipeline configuration
type Config struct {
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`           // 500
	WorkerCount    int    `yaml:"worker_count" mapstructure:"worker_count"`       // 4
	ValidateData   bool   `yaml:"validate_data" mapstructure:"validate_data"`     // true
	ProgressReport int    `yaml:"progress_report" mapstructure:"progress_report"` // 1000
	MaxTextBytes   int    `yaml:"max_text_bytes" mapstructure:"max_text_bytes"`   // 1 MB
	OutputPath     string `yaml:"output_path" mapstructure:"output_path"`
	MappingDir     string `yaml:"mapping_dir" mapstructure:"mapping_dir"`
}

// ProcessingStats tracks real-time processing statistics
type ProcessingStats struct {
	StartTime      time.Time `json:"start_time"`
	RecordsRead    int64     `json:"records_read"`
	RecordsValid   int64     `json:"records_valid"`
	RecordsInvalid int64     `json:"records_invalid"`
	CurrentBatch   int64     `json:"current_batch"`
}

// FileFormat represents supported file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	case strings.HasSuffix(filename, ".json") || strings.HasSuffix(filename, ".jsonl"):
		return FormatJSON
	default:
		return FormatCSV
	}
}
