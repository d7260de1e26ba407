package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/pkg/client"
	"github.com/promptvault/promptvault/pkg/config"
)

// rootOptions holds global flags shared by all commands.
type rootOptions struct {
	Path    string
	Actor   string
	Format  string // "json" | "text"
	Profile string
	Verbose bool
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "promptvault",
		Short: "Versioned, integrity-verified storage for prompt artifacts",
		Long: `promptvault stores prompt text as immutable, checksummed versions and
screens every write and read through a security pipeline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Path, "path", "", "vault directory (default $PROMPTVAULT_BASE_PATH or .promptvault)")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", defaultActor(), "actor identity recorded on the audit trail")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Profile, "profile", "", "environment profile name (loaded from <path>/profiles)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newCreateCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newRollbackCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	cmd.AddCommand(newDiscoverCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// defaultActor falls back to the OS user when no actor is given.
func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// loadConfig resolves configuration from environment, profile and
// flags, in that order of increasing precedence.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg := config.Load()
	if opts.Path != "" {
		cfg.BasePath = opts.Path
	}
	if opts.Profile != "" {
		p, err := config.LoadProfile(cfg.BasePath+"/profiles", opts.Profile)
		if err != nil {
			return nil, err
		}
		p.Apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openClient builds the vault client for a command invocation. Logs go
// to stderr so JSON output on stdout stays parseable.
func openClient(opts *rootOptions) (*client.Client, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return client.Open(cfg, newLogger(cfg.LogLevel, opts.Verbose))
}

func newLogger(level string, verbose bool) *slog.Logger {
	lvl := slog.LevelWarn
	if verbose {
		lvl = slog.LevelDebug
	} else {
		switch strings.ToUpper(level) {
		case "DEBUG":
			lvl = slog.LevelDebug
		case "INFO":
			lvl = slog.LevelInfo
		case "ERROR":
			lvl = slog.LevelError
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
