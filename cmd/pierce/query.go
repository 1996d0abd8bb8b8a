package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/pierce/probe"
)

func newQueryCommand(opts *rootOptions) *cobra.Command {
	var (
		req            probe.QueryRequest
		stdin          bool
		screenshotPath string
	)

	cmd := &cobra.Command{
		Use:   "query <selector>",
		Short: "Run a selector against inline HTML, a file or a URL",
		Long: `Run a shadow-piercing selector and print the matches as JSON.

Descendant combinators cross open shadow roots. ">>>" starts a new stage
searched inside the element matched by the previous one.

  pierce query 'x-app >>> li.item' --url https://example.com --stealth auto
  pierce query 'x-card h2' --file page.html --file-root ./pages
  cat page.html | pierce query '.price' --stdin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Selector = args[0]
			if stdin {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), opts.cfg.Fetch.MaxBody))
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				req.HTML = string(data)
			}
			if screenshotPath != "" {
				req.Screenshot = true
			}

			p, err := opts.open()
			if err != nil {
				return err
			}
			resp, err := p.Query(cmd.Context(), req)
			if err != nil {
				return err
			}
			if screenshotPath != "" {
				if err := os.WriteFile(screenshotPath, resp.Screenshot, 0o644); err != nil {
					return fmt.Errorf("write screenshot: %w", err)
				}
				resp.Screenshot = nil
			}
			return printJSON(cmd, resp)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.HTML, "html", "", "inline HTML source")
	f.BoolVar(&stdin, "stdin", false, "read the HTML source from stdin")
	f.StringVar(&req.File, "file", "", "file source, relative to --file-root")
	f.StringVar(&req.URL, "url", "", "URL source")
	f.StringVar(&req.Mode, "mode", "", "first or all (default from config)")
	f.StringVar(&req.Stealth, "stealth", "", "URL acquisition: 0, 1, 2 or auto (default from config)")
	f.BoolVar(&req.NoShadow, "no-shadow", false, "parse without shadow roots")
	f.BoolVar(&req.IncludeHTML, "include-html", false, "include outer HTML of each match")
	f.BoolVar(&req.Markdown, "markdown", false, "include markdown of each match")
	f.BoolVar(&req.Sanitize, "sanitize", false, "sanitise HTML output")
	f.IntVar(&req.MaxText, "max-text", 0, "truncate match text to this many bytes")
	f.BoolVar(&req.Highlight, "highlight", false, "outline matches on the live page")
	f.StringVar(&screenshotPath, "screenshot", "", "write a PNG of the live page to this path")
	f.BoolVar(&req.Record, "record", false, "record the run in the history database")
	return cmd
}

func newExplainCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <selector>",
		Short: "Show how a selector is split into stages, alternatives and components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := probe.Explain(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, plan)
		},
	}
}
