package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tordrt/schemaforge"
	"github.com/tordrt/schemaforge/internal/config"
	"github.com/tordrt/schemaforge/internal/diag"
)

var (
	dbURL       string
	inputFile   string
	target      string
	outputDir   string
	outputFile  string
	tables      string
	exclude     string
	schemaName  string
	baseTime    string
	timestamps  bool
	softDeletes bool
	asJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "schemaforge",
	Short: "Convert relational schemas between databases and migration code",
	Long: `SchemaForge extracts schemas from PostgreSQL, MySQL, or SQLite databases
or parses them from interchange notation, and generates dependency-ordered
migration files for any supported target dialect.`,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Generate migration artifacts from a database or notation file",
	RunE:  runConvert,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a database schema as interchange notation or JSON",
	RunE:  runExtract,
}

func init() {
	convertCmd.Flags().StringVar(&dbURL, "db-url", "", "Database connection URL (postgres://, mysql://, or sqlite://)")
	convertCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Interchange notation file to convert instead of a live database")
	convertCmd.Flags().StringVarP(&target, "target", "t", "", "Target dialect: postgres, mysql, sqlite, or laravel")
	convertCmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Directory for generated migration files")
	convertCmd.Flags().StringVar(&tables, "tables", "", "Specific tables (comma-separated, optional)")
	convertCmd.Flags().StringVar(&exclude, "exclude", "", "Tables to exclude (comma-separated, optional)")
	convertCmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	convertCmd.Flags().StringVar(&baseTime, "base-time", "", "Base instant for sequence prefixes, RFC 3339 (default: now)")
	convertCmd.Flags().BoolVar(&timestamps, "timestamps", false, "Add created_at/updated_at columns to every table")
	convertCmd.Flags().BoolVar(&softDeletes, "soft-deletes", false, "Add a deleted_at column to every table")

	extractCmd.Flags().StringVar(&dbURL, "db-url", "", "Database connection URL (postgres://, mysql://, or sqlite://)")
	extractCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	extractCmd.Flags().StringVar(&tables, "tables", "", "Specific tables (comma-separated, optional)")
	extractCmd.Flags().StringVar(&exclude, "exclude", "", "Tables to exclude (comma-separated, optional)")
	extractCmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	extractCmd.Flags().BoolVar(&asJSON, "json", false, "Emit the canonical schema document as JSON instead of notation")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(extractCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	applyConfigDefaults(cfg)

	if dbURL == "" && inputFile == "" {
		return fmt.Errorf("one of --db-url or --input must be specified")
	}
	if dbURL != "" && inputFile != "" {
		return fmt.Errorf("only one of --db-url or --input can be specified")
	}

	convOpts := &schemaforge.ConvertOptions{
		Target:      target,
		Timestamps:  timestamps,
		SoftDeletes: softDeletes,
	}
	if baseTime != "" {
		t, err := time.Parse(time.RFC3339, baseTime)
		if err != nil {
			return fmt.Errorf("invalid --base-time: %w", err)
		}
		convOpts.BaseTime = t
	}

	var result *schemaforge.ConvertResult
	if inputFile != "" {
		text, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		s, parseDiags, err := schemaforge.ParseDBML(string(text))
		if err != nil {
			printDiagnostics(parseDiags)
			return err
		}
		result, err = schemaforge.Convert(s, convOpts)
		if err != nil {
			printDiagnostics(parseDiags)
			return err
		}
		result.Diagnostics = append(parseDiags, result.Diagnostics...)
	} else {
		result, err = schemaforge.ExtractAndConvert(ctx, dbURL, extractOptions(), convOpts)
		if err != nil {
			return err
		}
	}

	printDiagnostics(result.Diagnostics)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, a := range result.Artifacts {
		path := filepath.Join(outputDir, a.Filename)
		if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.Filename, err)
		}
	}
	fmt.Printf("wrote %d artifacts to %s\n", len(result.Artifacts), outputDir)

	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	applyConfigDefaults(cfg)

	if dbURL == "" {
		return fmt.Errorf("--db-url must be specified")
	}

	s, diags, err := schemaforge.ExtractSchema(ctx, dbURL, extractOptions())
	if err != nil {
		return err
	}
	printDiagnostics(diags)

	var out string
	if asJSON {
		doc, err := schemaforge.SchemaDocument(s)
		if err != nil {
			return fmt.Errorf("failed to render schema document: %w", err)
		}
		out = string(doc) + "\n"
	} else {
		out, err = schemaforge.SerializeDBML(s)
		if err != nil {
			return fmt.Errorf("failed to serialize schema: %w", err)
		}
	}

	if outputFile == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	return nil
}

// applyConfigDefaults fills unset flags from schemaforge.yaml, keeping
// explicit flags authoritative.
func applyConfigDefaults(cfg *config.Config) {
	if target == "" {
		target = cfg.Target
	}
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if schemaName == "" {
		schemaName = cfg.SchemaName
	}
	if exclude == "" && len(cfg.ExcludeTables) > 0 {
		exclude = strings.Join(cfg.ExcludeTables, ",")
	}
	timestamps = timestamps || cfg.Timestamps
	softDeletes = softDeletes || cfg.SoftDeletes
}

func extractOptions() *schemaforge.Options {
	return &schemaforge.Options{
		Tables:        splitList(tables),
		ExcludeTables: splitList(exclude),
		SchemaName:    schemaName,
	}
}

func splitList(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// printDiagnostics writes accumulated findings to stderr, color-coded by
// severity.
func printDiagnostics(diags []diag.Diagnostic) {
	warn := color.New(color.FgYellow)
	suggest := color.New(color.FgCyan)

	for _, d := range diags {
		switch d.Severity {
		case diag.SeverityWarning:
			warn.Fprintln(os.Stderr, d.String())
		case diag.SeveritySuggestion:
			suggest.Fprintln(os.Stderr, d.String())
		default:
			fmt.Fprintln(os.Stderr, d.String())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
