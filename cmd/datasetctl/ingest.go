package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"dataset-engine/internal/manifest"
	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/internal/shardio"
)

// ingestConfig, validateIngestConfig and runIngest build a new dataset
// directory's source manifest and shard from a flat JSON records file, the
// way an external loader producing source shards would. Rows missing a
// uuid get one minted here, the way a real ingest pipeline would.
type ingestConfig struct {
	inputPath  string
	datasetDir string
}

func parseIngestFlags(args []string) (*ingestConfig, error) {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	input := fs.String("input", "", "path to a JSON file containing an array of flat records (required)")
	dir := datasetFlag(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &ingestConfig{inputPath: *input, datasetDir: *dir}, nil
}

func validateIngestConfig(cfg *ingestConfig) error {
	if cfg.inputPath == "" {
		return fmt.Errorf("--input is required")
	}
	if cfg.datasetDir == "" {
		return fmt.Errorf("--dataset is required")
	}
	return nil
}

func runIngest(args []string) error {
	cfg, err := parseIngestFlags(args)
	if err != nil {
		return err
	}
	if err := validateIngestConfig(cfg); err != nil {
		return err
	}

	raw, err := os.ReadFile(cfg.inputPath)
	if err != nil {
		return fmt.Errorf("ingest: read input: %w", err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(raw, &records); err != nil {
		return fmt.Errorf("ingest: parse input: %w", err)
	}

	rows := make([]record.Row, len(records))
	for i, r := range records {
		if _, ok := r[manifest.UUIDColumn]; !ok {
			r[manifest.UUIDColumn] = uuid.NewString()
		}
		rows[i] = record.Row(r)
	}

	schema := inferFlatSchema(rows)

	if err := os.MkdirAll(cfg.datasetDir, 0o755); err != nil {
		return fmt.Errorf("ingest: create dataset dir: %w", err)
	}
	shardPath := filepath.Join(cfg.datasetDir, "source.parquet")
	if err := shardio.WriteShard(shardPath, schema, rows); err != nil {
		return fmt.Errorf("ingest: write shard: %w", err)
	}

	sm := &manifest.SourceManifest{
		Files:      []string{"source.parquet"},
		DataSchema: schema,
		NumItems:   len(rows),
	}
	data, err := json.MarshalIndent(sm, "", "  ")
	if err != nil {
		return fmt.Errorf("ingest: marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(cfg.datasetDir, "manifest.json"), data, 0o644)
}

// inferFlatSchema builds a flat (no nesting) schema from the union of field
// names across rows, typing each field from the first non-nil value it sees.
func inferFlatSchema(rows []record.Row) *schemamodel.Schema {
	order := []string{}
	seen := map[string]bool{}
	types := map[string]schemamodel.DType{}

	for _, row := range rows {
		names := make([]string, 0, len(row))
		for name := range row {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
			if _, typed := types[name]; typed {
				continue
			}
			if dt, ok := inferDtype(row[name]); ok {
				types[name] = dt
			}
		}
	}

	pairs := make([]schemamodel.FieldPair, 0, len(order))
	for _, name := range order {
		dt, ok := types[name]
		if !ok {
			dt = schemamodel.DTypeString
		}
		pairs = append(pairs, schemamodel.FieldPair{Name: name, Field: schemamodel.Leaf(dt)})
	}
	return schemamodel.NewSchema(schemamodel.NewOrderedFields(pairs...))
}

func inferDtype(v interface{}) (schemamodel.DType, bool) {
	switch v.(type) {
	case nil:
		return "", false
	case bool:
		return schemamodel.DTypeBool, true
	case string:
		return schemamodel.DTypeString, true
	case float64:
		return schemamodel.DTypeFloat, true
	default:
		return schemamodel.DTypeString, true
	}
}
