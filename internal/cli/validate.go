package cli

import (
	"errors"
	"fmt"

	"github.com/kolah/talkit/internal/config"
	"github.com/kolah/talkit/internal/loader"
	"github.com/kolah/talkit/openapi"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the spec has the required top-level keys",
		Long: "Check that the spec has the required top-level keys (openapi, info, paths).\n" +
			"With --strict the document is also built as a full OpenAPI 3.x model.",
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	doc, err := openapi.ParseFile(cfg.Spec)
	if err != nil {
		return err
	}

	if !openapi.Unchecked(doc).ValidateSpec() {
		_, err := openapi.New(doc)
		var verr *openapi.ValidationError
		if errors.As(err, &verr) {
			cmd.PrintErrf("Invalid: %s\n", cfg.Spec)
			for _, key := range verr.Missing {
				cmd.PrintErrf("  missing: %s\n", key)
			}
		}
		return err
	}

	if !cfg.Strict {
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s\n", cfg.Spec)
		return nil
	}

	result, err := loader.LoadFile(cfg.Spec)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}

	for _, w := range result.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (OpenAPI %s)\n", cfg.Spec, result.Version)
	fmt.Fprintf(cmd.OutOrStdout(), "  Schemas: %d\n", result.Schemas)
	fmt.Fprintf(cmd.OutOrStdout(), "  Operations: %d\n", result.Operations)

	return nil
}
