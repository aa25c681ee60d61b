// Command datasetctl is the operator-facing CLI over pkg/dataset: each
// subcommand parses its own flags into a Config, validates it, then runs,
// failing loudly on the first stage that errors.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"dataset-engine/internal/query"
	"dataset-engine/internal/schemamodel"
	"dataset-engine/pkg/dataset"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "ingest":
		err = runIngest(args)
	case "manifest":
		err = runManifest(args)
	case "stats":
		err = runStats(args)
	case "select-groups":
		err = runSelectGroups(args)
	case "select-rows":
		err = runSelectRows(args)
	case "compute-signal-column":
		err = runComputeSignalColumn(args)
	case "compute-embedding-index":
		err = runComputeEmbeddingIndex(args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "datasetctl: unknown command %q\n", sub)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "datasetctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: datasetctl <command> [flags]

commands:
  ingest                   build a dataset directory's source manifest + shard from a JSON records file
  manifest                 print the dataset's merged manifest
  stats                    per-leaf statistics
  select-groups            grouped value counts over a leaf
  select-rows              materialize rows as a table
  compute-signal-column    run a built-in signal over a leaf and register the result
  compute-embedding-index  run a built-in vector signal over a leaf and persist vectors`)
}

// datasetFlag registers the --dataset flag shared by every subcommand.
func datasetFlag(fs *flag.FlagSet) *string {
	return fs.String("dataset", "", "path to the dataset directory (required)")
}

func pathFlag(fs *flag.FlagSet, name, usage string) *string {
	return fs.String(name, "", usage)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// manifestConfig, validateManifestConfig and runManifest follow the
// parseFlags -> validateConfig -> run three-step shape every subcommand
// uses.
type manifestConfig struct {
	datasetDir string
}

func parseManifestFlags(args []string) (*manifestConfig, error) {
	fs := flag.NewFlagSet("manifest", flag.ContinueOnError)
	dir := datasetFlag(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &manifestConfig{datasetDir: *dir}, nil
}

func validateManifestConfig(cfg *manifestConfig) error {
	if cfg.datasetDir == "" {
		return fmt.Errorf("--dataset is required")
	}
	return nil
}

func runManifest(args []string) error {
	cfg, err := parseManifestFlags(args)
	if err != nil {
		return err
	}
	if err := validateManifestConfig(cfg); err != nil {
		return err
	}
	ds, err := dataset.Open(cfg.datasetDir)
	if err != nil {
		return err
	}
	m, err := ds.Manifest()
	if err != nil {
		return err
	}
	return printJSON(m)
}

type statsConfig struct {
	datasetDir string
	leafPath   string
}

func parseStatsFlags(args []string) (*statsConfig, error) {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	dir := datasetFlag(fs)
	leaf := pathFlag(fs, "path", "dotted leaf path to summarize (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &statsConfig{datasetDir: *dir, leafPath: *leaf}, nil
}

func validateStatsConfig(cfg *statsConfig) error {
	if cfg.datasetDir == "" {
		return fmt.Errorf("--dataset is required")
	}
	if cfg.leafPath == "" {
		return fmt.Errorf("--path is required")
	}
	return nil
}

func runStats(args []string) error {
	cfg, err := parseStatsFlags(args)
	if err != nil {
		return err
	}
	if err := validateStatsConfig(cfg); err != nil {
		return err
	}
	path, err := schemamodel.NormalizePath(cfg.leafPath)
	if err != nil {
		return err
	}
	ds, err := dataset.Open(cfg.datasetDir)
	if err != nil {
		return err
	}
	res, err := ds.Stats(path)
	if err != nil {
		return err
	}
	return printJSON(res)
}

type selectGroupsConfig struct {
	datasetDir string
	leafPath   string
	sortBy     string
	sortOrder  string
	limit      int
}

func parseSelectGroupsFlags(args []string) (*selectGroupsConfig, error) {
	fs := flag.NewFlagSet("select-groups", flag.ContinueOnError)
	dir := datasetFlag(fs)
	leaf := pathFlag(fs, "path", "dotted leaf path to group by (required)")
	sortBy := fs.String("sort-by", "count", `"value" or "count"`)
	sortOrder := fs.String("sort-order", "desc", `"asc" or "desc"`)
	limit := fs.Int("limit", 0, "0 means unlimited")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &selectGroupsConfig{
		datasetDir: *dir,
		leafPath:   *leaf,
		sortBy:     *sortBy,
		sortOrder:  *sortOrder,
		limit:      *limit,
	}, nil
}

func validateSelectGroupsConfig(cfg *selectGroupsConfig) error {
	if cfg.datasetDir == "" {
		return fmt.Errorf("--dataset is required")
	}
	if cfg.leafPath == "" {
		return fmt.Errorf("--path is required")
	}
	return nil
}

func runSelectGroups(args []string) error {
	cfg, err := parseSelectGroupsFlags(args)
	if err != nil {
		return err
	}
	if err := validateSelectGroupsConfig(cfg); err != nil {
		return err
	}
	path, err := schemamodel.NormalizePath(cfg.leafPath)
	if err != nil {
		return err
	}
	ds, err := dataset.Open(cfg.datasetDir)
	if err != nil {
		return err
	}
	res, err := ds.SelectGroups(path, query.GroupsOptions{
		SortBy:    cfg.sortBy,
		SortOrder: cfg.sortOrder,
		Limit:     cfg.limit,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

type selectRowsConfig struct {
	datasetDir string
	sortBy     string
	sortOrder  string
	limit      int
	offset     int
}

func parseSelectRowsFlags(args []string) (*selectRowsConfig, error) {
	fs := flag.NewFlagSet("select-rows", flag.ContinueOnError)
	dir := datasetFlag(fs)
	sortBy := fs.String("sort-by", "", "column alias to sort by")
	sortOrder := fs.String("sort-order", "asc", `"asc" or "desc"`)
	limit := fs.Int("limit", 0, "0 means unlimited")
	offset := fs.Int("offset", 0, "rows to skip before the limit window")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &selectRowsConfig{
		datasetDir: *dir,
		sortBy:     *sortBy,
		sortOrder:  *sortOrder,
		limit:      *limit,
		offset:     *offset,
	}, nil
}

func validateSelectRowsConfig(cfg *selectRowsConfig) error {
	if cfg.datasetDir == "" {
		return fmt.Errorf("--dataset is required")
	}
	return nil
}

func runSelectRows(args []string) error {
	cfg, err := parseSelectRowsFlags(args)
	if err != nil {
		return err
	}
	if err := validateSelectRowsConfig(cfg); err != nil {
		return err
	}
	ds, err := dataset.Open(cfg.datasetDir)
	if err != nil {
		return err
	}
	res, err := ds.SelectRows(context.Background(), query.RowsOptions{
		SortBy:    cfg.sortBy,
		SortOrder: cfg.sortOrder,
		Limit:     cfg.limit,
		Offset:    cfg.offset,
	})
	if err != nil {
		return err
	}
	return printJSON(res.Rows)
}

type computeSignalConfig struct {
	datasetDir string
	leafPath   string
	columnName string
	signalName string
}

func parseComputeSignalFlags(args []string) (*computeSignalConfig, error) {
	fs := flag.NewFlagSet("compute-signal-column", flag.ContinueOnError)
	dir := datasetFlag(fs)
	leaf := pathFlag(fs, "path", "dotted leaf path to enrich (required)")
	column := fs.String("column", "", "top-level column name to register the result under (required)")
	sigName := fs.String("signal", "", "built-in signal name (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &computeSignalConfig{
		datasetDir: *dir,
		leafPath:   *leaf,
		columnName: *column,
		signalName: *sigName,
	}, nil
}

func validateComputeSignalConfig(cfg *computeSignalConfig) error {
	if cfg.datasetDir == "" {
		return fmt.Errorf("--dataset is required")
	}
	if cfg.leafPath == "" {
		return fmt.Errorf("--path is required")
	}
	if cfg.columnName == "" {
		return fmt.Errorf("--column is required")
	}
	if cfg.signalName == "" {
		return fmt.Errorf("--signal is required")
	}
	return nil
}

func runComputeSignalColumn(args []string) error {
	cfg, err := parseComputeSignalFlags(args)
	if err != nil {
		return err
	}
	if err := validateComputeSignalConfig(cfg); err != nil {
		return err
	}
	path, err := schemamodel.NormalizePath(cfg.leafPath)
	if err != nil {
		return err
	}
	sig, err := lookupSignal(cfg.signalName)
	if err != nil {
		return err
	}
	ds, err := dataset.Open(cfg.datasetDir)
	if err != nil {
		return err
	}
	sm, err := ds.ComputeSignalColumn(context.Background(), path, cfg.columnName, sig)
	if err != nil {
		return err
	}
	return printJSON(sm)
}

type computeEmbeddingConfig struct {
	datasetDir    string
	leafPath      string
	embeddingName string
	signalName    string
}

func parseComputeEmbeddingFlags(args []string) (*computeEmbeddingConfig, error) {
	fs := flag.NewFlagSet("compute-embedding-index", flag.ContinueOnError)
	dir := datasetFlag(fs)
	leaf := pathFlag(fs, "path", "dotted leaf path to embed (required)")
	embeddingName := fs.String("embedding", "", "embedding identity to persist vectors under (required)")
	sigName := fs.String("signal", "", "built-in signal that yields a vector per leaf value; must not be embedding-based (required)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return &computeEmbeddingConfig{
		datasetDir:    *dir,
		leafPath:      *leaf,
		embeddingName: *embeddingName,
		signalName:    *sigName,
	}, nil
}

func validateComputeEmbeddingConfig(cfg *computeEmbeddingConfig) error {
	if cfg.datasetDir == "" {
		return fmt.Errorf("--dataset is required")
	}
	if cfg.leafPath == "" {
		return fmt.Errorf("--path is required")
	}
	if cfg.embeddingName == "" {
		return fmt.Errorf("--embedding is required")
	}
	if cfg.signalName == "" {
		return fmt.Errorf("--signal is required")
	}
	return nil
}

func runComputeEmbeddingIndex(args []string) error {
	cfg, err := parseComputeEmbeddingFlags(args)
	if err != nil {
		return err
	}
	if err := validateComputeEmbeddingConfig(cfg); err != nil {
		return err
	}
	path, err := schemamodel.NormalizePath(cfg.leafPath)
	if err != nil {
		return err
	}
	sig, err := lookupSignal(cfg.signalName)
	if err != nil {
		return err
	}
	ds, err := dataset.Open(cfg.datasetDir)
	if err != nil {
		return err
	}
	return ds.ComputeEmbeddingIndex(context.Background(), path, cfg.embeddingName, sig)
}
