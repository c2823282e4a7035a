package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cbtrace/internal/codebeamer"
	"cbtrace/internal/config"
	"cbtrace/internal/importer"
	"cbtrace/internal/lobster"
	"cbtrace/internal/logger"
)

const generator = "cbtrace"

var log = logger.New()

var rootCmd = &cobra.Command{
	Use:   "cbtrace",
	Short: "Import codebeamer items into the shared tracing format",
	Long: `cbtrace extracts items from a codebeamer server's REST API and writes
them as a tracing artifact for downstream report generation.

Two import modes are available:
- tagged: fetch every item referenced from an existing tracing artifact
- query:  fetch every item matched by a saved codebeamer query (report)

Credentials resolve from flags, then CB_USERNAME/CB_PASSWORD, then ~/.netrc.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetLevel(viper.GetString("log-level"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var timeout *codebeamer.TimeoutError
		if errors.As(err, &timeout) {
			fmt.Fprintln(os.Stderr, "You can either:")
			fmt.Fprintln(os.Stderr, "* increase the timeout with --timeout")
			fmt.Fprintln(os.Stderr, "* decrease the query size with --page-size")
		}
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CBTRACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("cb-root", "CB_ROOT")
	_ = viper.BindEnv("cb-user", "CB_USERNAME")
	_ = viper.BindEnv("cb-pass", "CB_PASSWORD")
}

func addPersistentFlags() {
	pf := rootCmd.PersistentFlags()
	pf.String("cb-root", "", "codebeamer server root URL (https://...)")
	pf.String("cb-user", "", "codebeamer user name")
	pf.String("cb-pass", "", "codebeamer password")
	pf.String("config", "", "reference configuration file (JSON object with keys kind, refs)")
	pf.Bool("ignore-ssl-errors", false, "ignore ssl errors and accept any certificate")
	pf.Int("page-size", 100, "fetch this many items at once; reduce if you get timeouts")
	pf.Int("timeout", 30, "timeout in seconds for each REST call")
	pf.String("schema", "requirement", "output schema: requirement, implementation or activity")
	pf.String("out", "", "output file (default stdout)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	for _, name := range []string{
		"cb-root", "cb-user", "cb-pass", "config", "ignore-ssl-errors",
		"page-size", "timeout", "schema", "out", "log-level",
	} {
		_ = viper.BindPFlag(name, pf.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(taggedCmd())
	rootCmd.AddCommand(queryCmd())
}

func taggedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tagged <artifact>",
		Short: "Import every item referenced from an existing tracing artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("%s is not a readable file: %w", args[0], err)
			}
			return withImporter(cmd.Context(), func(ctx context.Context, imp *importer.Importer) ([]lobster.Record, error) {
				return imp.ImportTagged(ctx, args[0])
			})
		},
	}
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <query-id>",
		Short: "Import every item matched by a saved codebeamer query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queryID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("query id must be an integer, got %q", args[0])
			}
			if queryID < 1 {
				return fmt.Errorf("query id must be positive, got %d", queryID)
			}
			return withImporter(cmd.Context(), func(ctx context.Context, imp *importer.Importer) ([]lobster.Record, error) {
				return imp.ImportQuery(ctx, queryID)
			})
		},
	}
}

// --- helpers ---

func withImporter(ctx context.Context, fn func(context.Context, *importer.Importer) ([]lobster.Record, error)) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	client := codebeamer.New(codebeamer.Options{
		Root:      cfg.Root,
		User:      cfg.User,
		Pass:      cfg.Pass,
		VerifySSL: cfg.VerifySSL,
		PageSize:  cfg.PageSize,
		Timeout:   cfg.Timeout,
	}, log)
	records, err := fn(ctx, importer.New(client, cfg, log))
	if err != nil {
		return err
	}
	return writeOutput(cfg, records)
}

func buildConfig() (*config.Config, error) {
	cfg := &config.Config{
		Root:      strings.TrimRight(viper.GetString("cb-root"), "/"),
		User:      viper.GetString("cb-user"),
		Pass:      viper.GetString("cb-pass"),
		VerifySSL: !viper.GetBool("ignore-ssl-errors"),
		PageSize:  viper.GetInt("page-size"),
		Timeout:   time.Duration(viper.GetInt("timeout")) * time.Second,
	}
	schema, err := lobster.ParseSchema(viper.GetString("schema"))
	if err != nil {
		return nil, err
	}
	cfg.Schema = schema
	if path := viper.GetString("config"); path != "" {
		rc, err := config.LoadReferences(path)
		if err != nil {
			return nil, err
		}
		cfg.References = rc.References
		// The config file's kind wins over --schema.
		cfg.Schema = rc.Schema
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if err := cfg.ResolveCredentials(filepath.Join(home, ".netrc")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeOutput(cfg *config.Config, records []lobster.Record) error {
	path := viper.GetString("out")
	if path == "" {
		return lobster.Write(os.Stdout, cfg.Schema, generator, records)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := lobster.Write(f, cfg.Schema, generator, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Written %d items to %s\n", len(records), path)
	printKindSummary(records)
	return nil
}

func printKindSummary(records []lobster.Record) {
	if len(records) == 0 {
		return
	}
	counts := map[string]int{}
	for _, rec := range records {
		counts[rec.KindLabel()]++
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Kind", "Items"})
	for _, kind := range kinds {
		tw.AppendRow(table.Row{kind, counts[kind]})
	}
	tw.Render()
}
