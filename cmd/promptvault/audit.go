package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/pkg/audit"
)

func newAuditCommand(opts *rootOptions) *cobra.Command {
	var (
		actor  string
		event  string
		name   string
		limit  int
		since  string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query or verify the vault's audit trail",
		Long: `Query the append-only audit trail. With --verify, re-walks the whole
trail and checks its hash chain instead of printing records.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(opts)
			if err != nil {
				return err
			}
			defer c.Close()
			trail := c.Store().Trail()

			if verify {
				if err := trail.Verify(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "audit trail verified")
				return nil
			}

			filter := audit.Filter{
				Actor:        actor,
				EventType:    audit.EventType(event),
				ArtifactName: name,
				Limit:        limit,
			}
			if since != "" {
				ts, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("parse --since: %w", err)
				}
				filter.Since = ts
			}

			records, err := trail.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), records)
			}
			for _, r := range records {
				target := r.ArtifactName
				if r.ArtifactVersion != "" {
					target += "@" + r.ArtifactVersion
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\tok=%t\n",
					r.Timestamp.Format(time.RFC3339), r.EventType, r.Actor, target, r.Success)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor-filter", "", "only records for this actor")
	cmd.Flags().StringVar(&event, "event", "", "only records of this event type")
	cmd.Flags().StringVar(&name, "name", "", "only records for this artifact")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many records")
	cmd.Flags().StringVar(&since, "since", "", "only records at or after this RFC3339 time")
	cmd.Flags().BoolVar(&verify, "verify", false, "verify the trail's hash chain")
	return cmd
}
