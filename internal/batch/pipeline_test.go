package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoncore/anoncore/internal/config"
	"github.com/anoncore/anoncore/internal/engine"
	"github.com/anoncore/anoncore/internal/logger"
	"github.com/anoncore/anoncore/internal/mapping"
)

func TestDetectFileFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     FileFormat
	}{
		{"dataset.csv", FormatCSV},
		{"dataset.parquet", FormatParquet},
		{"dataset.json", FormatJSON},
		{"dataset.jsonl", FormatJSON},
		{"dataset.txt", FormatCSV},
		{"dataset", FormatCSV},
	}
	for _, tt := range tests {
		if got := DetectFileFormat(tt.filename); got != tt.want {
			t.Errorf("DetectFileFormat(%q) = %s, want %s", tt.filename, got, tt.want)
		}
	}
}

func newTestPipeline(t *testing.T, cfg *Config) *Pipeline {
	t.Helper()

	eng, err := engine.New(config.EngineConfig{
		Detectors:      []string{"all"},
		MinValueLength: 3,
	}, logger.NewNop())
	require.NoError(t, err)

	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}

	return NewPipeline(eng, nil, cfg, logger.NewNop())
}

func TestProcessCSVFile(t *testing.T) {
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "docs.csv")
	input := "id,text\n" +
		"doc-1,\"El cliente, Juan Pérez, con DNI 12345678Z, firmó el contrato.\"\n" +
		"doc-2,\"Contacto: ventas@acme.com, tel: 611223344.\"\n" +
		"doc-3,Sin entidades detectables aquí.\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o644))

	cfg := &Config{
		ValidateData: true,
		OutputPath:   filepath.Join(dir, "out.jsonl"),
		MappingDir:   filepath.Join(dir, "mappings"),
	}
	p := newTestPipeline(t, cfg)

	result, err := p.ProcessFile(context.Background(), inputPath)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TotalRecords)
	assert.Equal(t, int64(3), result.ProcessedOK)
	assert.Equal(t, int64(0), result.ProcessedFailed)

	// Output lines preserve input order.
	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	var first OutputRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "doc-1", first.ID)
	assert.Equal(t, "El cliente, [NAME_1], con DNI [DNI_1], firmó el contrato.", first.PseudonymizedText)
	assert.Equal(t, 2, first.EntityCount)

	var second OutputRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "doc-2", second.ID)
	assert.Equal(t, "Contacto: [EMAIL_1], tel: [PHONE_1].", second.PseudonymizedText)

	// Each document gets its own mapping file that can drive a reversal.
	mappingData, err := os.ReadFile(filepath.Join(cfg.MappingDir, "doc-1.json"))
	require.NoError(t, err)
	entities, err := mapping.Decode(mappingData)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	restored, err := p.engine.Reverse(first.PseudonymizedText, entities)
	require.NoError(t, err)
	assert.Equal(t, "El cliente, Juan Pérez, con DNI 12345678Z, firmó el contrato.", restored)

	// A document without entities still gets a mapping file, holding an
	// empty array.
	emptyMapping, err := os.ReadFile(filepath.Join(cfg.MappingDir, "doc-3.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(emptyMapping))
}

func TestProcessJSONLinesFile(t *testing.T) {
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "docs.jsonl")
	input := `{"id":"a","text":"DNI 12345678Z del interesado."}` + "\n" +
		`{"id":"b","text":"Email: ana@acme.com."}` + "\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o644))

	cfg := &Config{
		ValidateData: true,
		OutputPath:   filepath.Join(dir, "out.jsonl"),
		MappingDir:   filepath.Join(dir, "mappings"),
	}
	p := newTestPipeline(t, cfg)

	result, err := p.ProcessFile(context.Background(), inputPath)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalRecords)
	assert.Equal(t, int64(2), result.ProcessedOK)

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec OutputRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "a", rec.ID)
	assert.Contains(t, rec.PseudonymizedText, "[DNI_1]")
}

func TestProcessFileSkipsInvalidRecords(t *testing.T) {
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "docs.csv")
	input := "id,text\n" +
		",Texto sin identificador.\n" +
		"doc-2,   \n" +
		"doc-3,Texto válido con DNI 12345678Z.\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o644))

	cfg := &Config{
		ValidateData: true,
		OutputPath:   filepath.Join(dir, "out.jsonl"),
		MappingDir:   filepath.Join(dir, "mappings"),
	}
	p := newTestPipeline(t, cfg)

	result, err := p.ProcessFile(context.Background(), inputPath)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalRecords)
	assert.Equal(t, int64(1), result.ProcessedOK)
}

func TestProcessFileCancelled(t *testing.T) {
	dir := t.TempDir()

	inputPath := filepath.Join(dir, "docs.csv")
	input := "id,text\ndoc-1,Texto con DNI 12345678Z.\n"
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o644))

	cfg := &Config{
		OutputPath: filepath.Join(dir, "out.jsonl"),
		MappingDir: filepath.Join(dir, "mappings"),
	}
	p := newTestPipeline(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessFile(ctx, inputPath)
	assert.ErrorIs(t, err, context.Canceled)
}
