package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/pkg/migrate"
)

func newDiscoverCommand(opts *rootOptions) *cobra.Command {
	var asBatch bool
	cmd := &cobra.Command{
		Use:   "discover <source-dir>",
		Short: "Scan a source tree for embedded prompt strings",
		Long: `Scan source files for string assignments that look like embedded
prompts. With --batch, emit the findings as a migrate batch skeleton
instead of a listing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			findings, err := migrate.Discover(args[0])
			if err != nil {
				return err
			}
			if asBatch {
				return printJSON(cmd.OutOrStdout(), migrate.FindingsBatch(findings, args[0]))
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), findings)
			}
			for _, f := range findings {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d\t%s\t%s\n", f.Path, f.Line, f.Variable, f.Preview)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d candidate prompt(s) found\n", len(findings))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asBatch, "batch", false, "emit findings as a migrate batch skeleton")
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate <batch-file>",
		Short: "Import a JSON batch of prompts through the write pipeline",
		Long: `Import prompts from a batch document. The document is schema-validated
up front; individual items then fail independently, so one rejected
prompt never aborts the rest. Exits non-zero if any item failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := migrate.ReadBatchFile(args[0])
			if err != nil {
				return err
			}
			c, err := openClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			report := migrate.Import(cmd.Context(), c, batch, opts.Actor, nil)
			if opts.Format == "json" {
				if err := printJSON(cmd.OutOrStdout(), reportView(report)); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d/%d prompt(s)\n", report.Succeeded, report.Total)
				for _, e := range report.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "rejected: %v\n", e)
				}
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d item(s) failed", report.Failed, report.Total)
			}
			return nil
		},
	}
	return cmd
}

// reportView flattens a report's errors to strings for JSON output.
func reportView(r *migrate.Report) map[string]any {
	errs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e.Error())
	}
	return map[string]any{
		"total":     r.Total,
		"succeeded": r.Succeeded,
		"failed":    r.Failed,
		"errors":    errs,
	}
}
