// Command pierce resolves shadow-piercing CSS selectors against HTML
// documents and live pages, and serves the same operations over HTTP and MCP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/pierce/probe"
)

// rootOptions holds the global flags and the Probe built from them.
type rootOptions struct {
	configPath   string
	logLevel     string
	dbPath       string
	allowPrivate bool
	fileRoot     string

	logger *slog.Logger
	cfg    *probe.Config
	probe  *probe.Probe
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "pierce:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pierce",
		Short:         "Shadow-DOM-piercing CSS selector queries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.probe != nil {
				return opts.probe.Close()
			}
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "path to pierce.yaml config file")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&opts.dbPath, "db", "", "SQLite database for saved selectors and run history (overrides store.path)")
	f.BoolVar(&opts.allowPrivate, "allow-private", false, "allow fetching private and loopback addresses")
	f.StringVar(&opts.fileRoot, "file-root", "", "directory file sources are resolved under (overrides fetch.file_root)")

	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newExplainCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMCPCommand(opts))
	cmd.AddCommand(newSelectorsCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	var level slog.Level
	switch o.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	o.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)

	o.cfg = probe.DefaultConfig()
	if o.configPath != "" {
		cfg, err := probe.LoadConfigFile(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		o.cfg = cfg
	}
	if o.dbPath != "" {
		o.cfg.Store.Path = o.dbPath
	}
	if o.allowPrivate {
		o.cfg.Fetch.AllowPrivate = true
	}
	if o.fileRoot != "" {
		o.cfg.Fetch.FileRoot = o.fileRoot
	}
	return nil
}

// open builds the Probe on first use; explain never needs one.
func (o *rootOptions) open() (*probe.Probe, error) {
	if o.probe != nil {
		return o.probe, nil
	}
	p, err := probe.New(o.cfg, probe.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	o.probe = p
	return p, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
