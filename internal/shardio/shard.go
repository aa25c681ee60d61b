// Package shardio reads and writes the parquet shards that make up a
// dataset directory's files, using xitongsys/parquet-go's JSON-schema
// constructor (see schema.go) because the schema tree is dynamic.
package shardio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"dataset-engine/internal/record"
	"dataset-engine/internal/schemamodel"
)

// writeConcurrency is the default parquet writer parallelism.
const writeConcurrency = 4

// WriteShard writes rows to path as a parquet file matching schema, going
// through a temp name first so a crash mid-write never leaves a partial
// shard at the final path.
func WriteShard(path string, schema *schemamodel.Schema, rows []record.Row) error {
	jsonSchema, err := BuildJSONSchema(schema)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	fw, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		return fmt.Errorf("shardio: open shard for write: %w", err)
	}
	pw, err := writer.NewJSONWriter(jsonSchema, fw, writeConcurrency)
	if err != nil {
		fw.Close()
		os.Remove(tmp)
		return fmt.Errorf("shardio: create parquet writer: %w", err)
	}

	for _, row := range rows {
		line, err := json.Marshal(row)
		if err != nil {
			pw.WriteStop()
			fw.Close()
			os.Remove(tmp)
			return fmt.Errorf("shardio: marshal row: %w", err)
		}
		if err := pw.Write(string(line)); err != nil {
			pw.WriteStop()
			fw.Close()
			os.Remove(tmp)
			return fmt.Errorf("shardio: write row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		os.Remove(tmp)
		return fmt.Errorf("shardio: flush parquet writer: %w", err)
	}
	if err := fw.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("shardio: close shard file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("shardio: rename shard into place: %w", err)
	}
	return nil
}

// ReadShard reads every row of the parquet file at path back into generic
// nested record.Row values.
func ReadShard(path string) ([]record.Row, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("shardio: open shard for read: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, writeConcurrency)
	if err != nil {
		return nil, fmt.Errorf("shardio: create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	if num == 0 {
		return nil, nil
	}
	raw, err := pr.ReadByNumber(num)
	if err != nil {
		return nil, fmt.Errorf("shardio: read rows: %w", err)
	}

	// The schema-less reader yields rows as anonymous structs generated
	// from the parquet footer; round-trip through JSON to get back plain
	// maps matching record.Row's shape.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("shardio: marshal rows: %w", err)
	}
	var rows []record.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("shardio: unmarshal rows: %w", err)
	}
	return rows, nil
}

// DeleteIfExists removes path, ignoring a not-exist error. Used to clean up
// a partial shard when an enrichment fails before its manifest is written,
// so no partial shard file survives a failed enrichment.
func DeleteIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
