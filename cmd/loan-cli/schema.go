package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loan-approval/internal/classifier"
	"loan-approval/internal/features"
	"loan-approval/pkg/registry"
)

func newSchemaCmd(root *rootOptions) *cobra.Command {
	var schemaVersion string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the ordered feature schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := features.LoadSchema(schemaVersion)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "schema %s (%d features)\n", schema.Version, schema.Len())
			for i, name := range schema.Names {
				fmt.Fprintf(w, "%2d  %s\n", i, name)
			}
			for _, cat := range schema.Categories {
				fmt.Fprintf(w, "baseline %s = %s\n", cat.Attribute, cat.Baseline)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaVersion, "schema-version", registry.DefaultVersion, "bundled schema version")

	cmd.AddCommand(newSchemaCheckCmd(root))
	return cmd
}

func newSchemaCheckCmd(root *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the startup assertion against a schema document and the configured model",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			var (
				schema *features.Schema
				err    error
			)
			if file != "" {
				doc, err := registry.LoadDocument(file)
				if err != nil {
					return err
				}
				schema, err = features.NewSchema(doc)
				if err != nil {
					return err
				}
			} else {
				if schema, err = features.DefaultSchema(); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "schema %s: OK (%d features)\n", schema.Version, schema.Len())

			mc, err := root.modelConfig()
			if err != nil {
				return err
			}
			model, err := classifier.Load(mc, schema)
			if err != nil {
				return err
			}
			defer model.Close()

			fmt.Fprintf(w, "model %s: OK\n", model.Version())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "schema document to check instead of the bundled one")
	return cmd
}
