package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kgenlabs/kgen"
	"github.com/kgenlabs/kgen/ontology"
)

func relationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relations",
		Short: "Inspect and edit the relation schema",
	}
	cmd.AddCommand(relationsListCmd())
	cmd.AddCommand(relationsAddCmd())
	cmd.AddCommand(relationsSaveCmd())
	return cmd
}

func relationsListCmd() *cobra.Command {
	var ontologyPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the relation schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := kgen.DefaultConfig()
			cfg.OntologyPath = ontologyPath

			engine, err := kgen.New(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDOMAIN\tRANGE\tDESCRIPTION")
			for _, spec := range engine.Relations() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.Name, spec.Domain, spec.Range, spec.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&ontologyPath, "ontology", "", "Relation schema JSON file (default: built-in relations)")
	return cmd
}

func relationsSaveCmd() *cobra.Command {
	var ontologyPath string

	cmd := &cobra.Command{
		Use:   "save <file>",
		Short: "Write the effective relation schema to a file",
		Long: `Save writes the full schema, built-in defaults merged with the
--ontology file, to the given path in canonical form.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := kgen.DefaultConfig()
			cfg.OntologyPath = ontologyPath

			engine, err := kgen.New(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.SaveCustomRelations(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d relations to %s\n", len(engine.Relations()), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&ontologyPath, "ontology", "", "Relation schema JSON file to start from")
	return cmd
}

func relationsAddCmd() *cobra.Command {
	var (
		ontologyPath string
		description  string
		domain       string
		rng          string
		savePath     string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a relation to the schema",
		Long: `Add inserts a relation into the schema and writes the result back out.
The target file is --save when given, otherwise the --ontology file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if savePath == "" {
				savePath = ontologyPath
			}
			if savePath == "" {
				return fmt.Errorf("either --save or --ontology is required")
			}

			cfg := kgen.DefaultConfig()
			cfg.OntologyPath = ontologyPath

			engine, err := kgen.New(cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			replaced, err := engine.AddCustomRelation(ontology.RelationSpec{
				Name:        args[0],
				Description: description,
				Domain:      domain,
				Range:       rng,
			})
			if err != nil {
				return err
			}
			if err := engine.SaveCustomRelations(savePath); err != nil {
				return err
			}

			verb := "added"
			if replaced {
				verb = "replaced"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s relation %q in %s\n", verb, args[0], savePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&ontologyPath, "ontology", "", "Relation schema JSON file to start from")
	cmd.Flags().StringVar(&description, "description", "", "Relation description, used to phrase questions")
	cmd.Flags().StringVar(&domain, "domain", "", "Required subject class")
	cmd.Flags().StringVar(&rng, "range", "", "Required object class")
	cmd.Flags().StringVar(&savePath, "save", "", "Write the schema to this file")
	cobra.CheckErr(cmd.MarkFlagRequired("description"))
	cobra.CheckErr(cmd.MarkFlagRequired("domain"))
	cobra.CheckErr(cmd.MarkFlagRequired("range"))

	return cmd
}
