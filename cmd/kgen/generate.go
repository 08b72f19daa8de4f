package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kgenlabs/kgen"
	"github.com/kgenlabs/kgen/export"
)

func generateCmd() *cobra.Command {
	var (
		configPath   string
		ontologyPath string
		archivePath  string
		format       string
		maxQuestions int
		outputPath   string
	)

	cmd := &cobra.Command{
		Use:   "generate <file>...",
		Short: "Generate a knowledge graph from one or more documents",
		Long: `Generate parses each input document, extracts entities and relations,
and writes the serialized knowledge graph.

With a single input the graph goes to stdout, or to --output when set.
With several inputs each graph is written next to its source file with
the format's extension.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(configPath, ontologyPath, archivePath, format, maxQuestions)
			if err != nil {
				return err
			}

			engine, err := kgen.New(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			if len(args) == 1 {
				return generateOne(cmd, engine, args[0], outputPath)
			}
			if outputPath != "" {
				return fmt.Errorf("--output only applies to a single input")
			}
			return generateMany(cmd, engine, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML or JSON)")
	cmd.Flags().StringVar(&ontologyPath, "ontology", "", "Relation schema JSON file (default: built-in relations)")
	cmd.Flags().StringVar(&archivePath, "archive", "", "SQLite archive path (default: no archiving)")
	cmd.Flags().StringVarP(&format, "output-format", "f", "", "Output format: turtle, xml, or json-ld")
	cmd.Flags().IntVarP(&maxQuestions, "max-questions", "q", 0, "Maximum competency questions per document")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the graph to this file instead of stdout")

	return cmd
}

// buildConfig layers command-line flags over the config file defaults.
func buildConfig(configPath, ontologyPath, archivePath, format string, maxQuestions int) (kgen.Config, error) {
	cfg := kgen.DefaultConfig()
	if configPath != "" {
		loaded, err := kgen.LoadConfig(configPath)
		if err != nil {
			return kgen.Config{}, err
		}
		cfg = loaded
	}
	if ontologyPath != "" {
		cfg.OntologyPath = ontologyPath
	}
	if archivePath != "" {
		cfg.ArchivePath = archivePath
	}
	if format != "" {
		cfg.OutputFormat = format
	}
	if maxQuestions > 0 {
		cfg.MaxQuestions = maxQuestions
	}
	return cfg, nil
}

func generateOne(cmd *cobra.Command, engine kgen.Engine, path, outputPath string) error {
	res, err := engine.Generate(cmd.Context(), path)
	if err != nil {
		return err
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(res.Output), 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		printSummary(cmd, res, outputPath)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), res.Output)
	return nil
}

func generateMany(cmd *cobra.Command, engine kgen.Engine, paths []string) error {
	results := engine.GenerateBatch(cmd.Context(), paths)

	var failed int
	for _, br := range results {
		if br.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", br.Path, br.Err)
			continue
		}
		outPath := outputPathFor(br.Path, br.Result.Format)
		if err := os.WriteFile(outPath, []byte(br.Result.Output), 0o644); err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: writing output: %v\n", br.Path, err)
			continue
		}
		printSummary(cmd, br.Result, outPath)
	}

	if failed == len(paths) {
		return fmt.Errorf("all %d inputs failed", failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(paths))
	}
	return nil
}

// outputPathFor places the graph next to its source with the format's
// extension.
func outputPathFor(inputPath string, format export.Format) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + format.Ext()
}

func printSummary(cmd *cobra.Command, res *kgen.Result, outPath string) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d entities, %d triples, %d questions -> %s\n",
		res.Name, len(res.Entities), len(res.Triples), len(res.Questions), outPath)
}
