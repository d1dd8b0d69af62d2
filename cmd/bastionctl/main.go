// Command bastionctl inspects permission catalogs and simulates access
// decisions against an in-memory engine.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/xraph/bastion/catalog"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// config holds environment defaults; flags override them.
type config struct {
	Catalog   string `envconfig:"BASTION_CATALOG"`
	Output    string `envconfig:"BASTION_OUTPUT" default:"text"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "bastionctl: %v\n", err)
	}

	root := &cobra.Command{
		Use:          "bastionctl",
		Short:        "Inspect permission catalogs and simulate access decisions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Output != "text" && cfg.Output != "json" {
				return fmt.Errorf("--output must be text or json, got %q", cfg.Output)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&cfg.Catalog, "catalog", cfg.Catalog, "catalog YAML file; empty uses the embedded default (env BASTION_CATALOG)")
	root.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "output format: text|json (env BASTION_OUTPUT)")

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog operations",
	}
	catalogCmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the catalog document",
			RunE: func(cmd *cobra.Command, _ []string) error {
				def, err := loadCatalog(cfg.Catalog)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %d modules, %d roles, %d equivalence rules\n",
					len(def.Modules), len(def.Roles), len(def.Equivalences))
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print modules, their permissions and seed roles",
			RunE: func(cmd *cobra.Command, _ []string) error {
				def, err := loadCatalog(cfg.Catalog)
				if err != nil {
					return err
				}
				if cfg.Output == "json" {
					return writeJSON(cmd.OutOrStdout(), def)
				}
				return printCatalog(cmd.OutOrStdout(), def)
			},
		},
	)

	var fixturePath string
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Load a fixture of users and grants and run its checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fixturePath == "" {
				return fmt.Errorf("--fixture is required")
			}
			def, err := loadCatalog(cfg.Catalog)
			if err != nil {
				return err
			}
			fx, err := loadFixture(fixturePath)
			if err != nil {
				return err
			}
			rep, err := simulate(cmd.Context(), def, fx, slog.Default())
			if err != nil {
				return err
			}
			if cfg.Output == "json" {
				if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			} else if err := printReport(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if rep.Failures > 0 {
				return fmt.Errorf("%d of %d checks did not match expectations", rep.Failures, len(rep.Results))
			}
			return nil
		},
	}
	simulateCmd.Flags().StringVarP(&fixturePath, "fixture", "f", "", "fixture YAML with users, grants and checks")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the bastionctl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(catalogCmd, simulateCmd, versionCmd)
	return root
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", format)
	}
}

func loadCatalog(path string) (*catalog.Definition, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCatalog(w io.Writer, def *catalog.Definition) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tDISPLAY NAME\tPERMISSIONS")
	for _, m := range def.Modules {
		fmt.Fprintf(tw, "%s\t%s\t%v\n", m.Name, m.DisplayName, m.Permissions)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ROLE\tMODULE\tPERMISSIONS\tSYSTEM")
	for _, r := range def.Roles {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%t\n", r.Name, r.Module, r.Permissions, r.System)
	}
	return tw.Flush()
}
