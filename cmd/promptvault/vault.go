package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/pkg/client"
	"github.com/promptvault/promptvault/pkg/store"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a vault directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "initialized vault at %s\n", c.Store().Root())
			return nil
		},
	}
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	var (
		file     string
		category string
		risk     string
		tags     []string
		approved bool
	)
	cmd := &cobra.Command{
		Use:   "create <name> <version>",
		Short: "Store a new immutable prompt version",
		Long: `Store a new prompt version. Content is read from --file, or from
stdin when no file is given. The content passes the full write
pipeline before anything is persisted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(cmd, file)
			if err != nil {
				return err
			}
			c, err := openClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			a, err := c.Create(cmd.Context(), client.CreateRequest{
				Name:      args[0],
				Content:   content,
				Version:   args[1],
				Category:  store.Category(category),
				RiskLevel: store.RiskLevel(risk),
				Actor:     opts.Actor,
				Approved:  approved,
				Tags:      tags,
			})
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s@%s (checksum %s)\n", a.Name, a.Version, a.Checksum[:12])
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read content from file instead of stdin")
	cmd.Flags().StringVar(&category, "category", "", "artifact category (system|user|fallback|template|internal)")
	cmd.Flags().StringVar(&risk, "risk", "", "risk level (low|medium|high|critical)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to attach (repeatable)")
	cmd.Flags().BoolVar(&approved, "approved", false, "mark the version approved")
	return cmd
}

func newLoadCommand(opts *rootOptions) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Load a prompt version, verifying its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			a, err := c.Load(cmd.Context(), args[0], version, opts.Actor)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprint(cmd.OutOrStdout(), a.Content)
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "version to load (default latest)")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [name]",
		Short: "List stored prompt versions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			artifacts, err := c.List(cmd.Context(), name)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), artifacts)
			}
			for _, a := range artifacts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s@%s\t%s\t%s\tby %s\n",
					a.Name, a.Version, a.Category, a.RiskLevel, a.CreatedBy)
			}
			return nil
		},
	}
	return cmd
}

func newRollbackCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <name> <version>",
		Short: "Point a prompt's latest version back to an earlier one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()

			a, err := c.Rollback(cmd.Context(), args[0], args[1], opts.Actor)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s to %s\n", a.Name, a.Version)
			return nil
		},
	}
}

// readContent pulls create content from a file or stdin.
func readContent(cmd *cobra.Command, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read content: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
