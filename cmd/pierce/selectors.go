package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/pierce/probe"
)

func newSelectorsCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selectors",
		Short: "Manage saved selectors (requires --db or store.path)",
	}
	cmd.AddCommand(newSelectorsSaveCommand(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved selectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.open()
			if err != nil {
				return err
			}
			sels, err := p.ListSelectors(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, sels)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved selector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.open()
			if err != nil {
				return err
			}
			if err := p.DeleteSelector(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(newSelectorsRunCommand(opts))
	return cmd
}

func newSelectorsSaveCommand(opts *rootOptions) *cobra.Command {
	var sel probe.Selector
	cmd := &cobra.Command{
		Use:   "save <name> <selector>",
		Short: "Save or replace a named selector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel.Name, sel.Selector = args[0], args[1]
			p, err := opts.open()
			if err != nil {
				return err
			}
			saved, err := p.SaveSelector(cmd.Context(), sel)
			if err != nil {
				return err
			}
			return printJSON(cmd, saved)
		},
	}
	f := cmd.Flags()
	f.StringVar(&sel.Source, "source", "", "default source: URL or file path")
	f.StringVar(&sel.Mode, "mode", "", "first or all")
	f.StringVar(&sel.Stealth, "stealth", "", "0, 1, 2 or auto")
	return cmd
}

func newSelectorsRunCommand(opts *rootOptions) *cobra.Command {
	var req probe.RunRequest
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a saved selector and record the run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			p, err := opts.open()
			if err != nil {
				return err
			}
			resp, err := p.RunSelector(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Source, "source", "", "override the saved source")
	f.BoolVar(&req.Markdown, "markdown", false, "include markdown")
	f.BoolVar(&req.Highlight, "highlight", false, "outline matches on the live page")
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var f probe.HistoryFilter
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := opts.open()
			if err != nil {
				return err
			}
			runs, err := p.History(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printJSON(cmd, runs)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.Name, "name", "", "saved selector name")
	fl.StringVar(&f.Selector, "selector", "", "raw selector")
	fl.StringVar(&f.Source, "source", "", "source")
	fl.IntVar(&f.Limit, "limit", 50, "max runs")
	return cmd
}
