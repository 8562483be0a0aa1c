package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

// CLIFlags holds the flag values spec.md §6 requires: Prefix ("--pf"),
// InstanceID ("--id"), and ConfigPath ("-f") are required; Help/Version
// short-circuit the run.
type CLIFlags struct {
	Prefix      string
	InstanceID  string
	ConfigPath  string
	ShowVersion bool
}

// NewRootCommand builds the cobra command tree for cmd/matchengine.
// Grounded on NimbleMarkets-dbn-go's cobra/pflag cmd trees: flags on the
// root command, run logic injected via a closure rather than global
// package state. A custom PreRunE enforces spec.md's
// required-flag/exit-1 rule because cobra's own MarkFlagRequired prints
// cobra's own usage text, not the "help to stderr" behavior spec.md asks
// for.
func NewRootCommand(run func(flags CLIFlags, v *viper.Viper) error) *cobra.Command {
	flags := CLIFlags{}

	cmd := &cobra.Command{
		Use:           "matchengine",
		Short:         "Per-instrument matching engine core",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.ShowVersion {
				fmt.Println(Version)
				os.Exit(0)
			}

			var missing []string
			if flags.Prefix == "" {
				missing = append(missing, "--pf")
			}
			if flags.InstanceID == "" {
				missing = append(missing, "--id")
			}
			if flags.ConfigPath == "" {
				missing = append(missing, "-f")
			}
			if len(missing) > 0 {
				fmt.Fprintf(os.Stderr, "missing required flag(s): %v\n\n", missing)
				fmt.Fprint(os.Stderr, cmd.UsageString())
				os.Exit(1)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags, bindOperationalFlags(cmd))
		},
	}

	cmd.Flags().StringVar(&flags.Prefix, "pf", "", "instance prefix (required)")
	cmd.Flags().StringVar(&flags.InstanceID, "id", "", "instance id (required)")
	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "f", "", "path to the XML config file (required)")
	cmd.Flags().BoolVarP(&flags.ShowVersion, "version", "v", false, "print version and exit")

	bindOperationalFlagDefs(cmd)

	return cmd
}

// bindOperationalFlagDefs registers the non-required operational flags
// (Mongo URI, admin address, retention, archive directory, persistence,
// FIX sessions file) that viper also
// reads from the environment, grounded on 0xtitan6-polymarket-mm's
// viper+env config pattern.
func bindOperationalFlagDefs(cmd *cobra.Command) {
	cmd.Flags().String("mongo-uri", "mongodb://localhost:27017/matchcore", "trade tape MongoDB URI")
	cmd.Flags().Bool("trade-tape-enabled", false, "enable the supplementary MongoDB trade tape")
	cmd.Flags().Int("trade-retention-days", 7, "trade tape retention in days (0 = keep forever)")
	cmd.Flags().String("admin-listen-addr", ":8090", "admin HTTP listen address")
	cmd.Flags().Int("admin-rate-limit-rps", 5, "requests/sec rate limit for /halt and /resume")
	cmd.Flags().String("archive-dir", "./archive", "trade tape archive directory")
	cmd.Flags().String("persistence-file-path", "", "instrument state persistence directory")
	cmd.Flags().Bool("persistence-enabled", false, "enable instrument state snapshot/restore")
	cmd.Flags().String("fix-sessions-path", "", "path to the FIX [DEFAULT]/[SESSION] INI file")
}

func bindOperationalFlags(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MATCHCORE")
	v.AutomaticEnv()
	v.BindPFlags(cmd.Flags())
	return v
}
