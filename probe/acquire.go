package probe

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/hazyhaar/pierce/dom"
	"github.com/hazyhaar/pierce/horosafe"
	"github.com/hazyhaar/pierce/probe/internal/browser"
)

// acquisition is a loaded document and, for browser sources, the tab it
// came from.
type acquisition struct {
	doc        *dom.Document
	tab        *browser.Tab
	kind       string
	baseURL    string
	escalation string
}

func (a *acquisition) close() {
	if a.tab != nil {
		a.tab.Close()
	}
}

func (p *Probe) acquire(ctx context.Context, req QueryRequest) (*acquisition, error) {
	var opts []dom.Option
	if req.NoShadow {
		opts = append(opts, dom.WithoutShadowRoots())
	}

	switch {
	case req.HTML != "":
		doc, err := dom.ParseString(req.HTML, opts...)
		if err != nil {
			return nil, fmt.Errorf("probe: parse inline: %w", err)
		}
		return &acquisition{doc: doc, kind: "inline"}, nil

	case req.File != "":
		return p.acquireFile(req.File, opts)
	}

	if err := p.guardURL(req.URL); err != nil {
		return nil, err
	}
	level := req.Stealth
	// A live page is needed to highlight or capture.
	if level == "auto" && (req.Highlight || req.Screenshot) {
		level = "1"
	}

	switch level {
	case "1", "2":
		return p.acquireBrowser(ctx, req.URL, level)
	}

	res, err := p.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	doc, err := dom.Parse(bytes.NewReader(res.Body), opts...)
	if err != nil {
		return nil, fmt.Errorf("probe: parse %s: %w", req.URL, err)
	}
	static := &acquisition{doc: doc, kind: "http", baseURL: res.FinalURL}
	if level == "0" {
		return static, nil
	}

	need, reason := res.Analysis.NeedsBrowser()
	if !need {
		return static, nil
	}
	p.logger.Info("probe: escalating to browser", "url", req.URL, "reason", reason)
	live, err := p.acquireBrowser(ctx, req.URL, "1")
	if err != nil {
		p.logger.Warn("probe: browser unavailable, using static document", "url", req.URL, "error", err)
		static.escalation = reason + " (browser failed)"
		return static, nil
	}
	live.escalation = reason
	return live, nil
}

func (p *Probe) guardURL(u string) error {
	if p.cfg.Fetch.AllowPrivate {
		return nil
	}
	if err := horosafe.ValidateURL(u); err != nil {
		return fmt.Errorf("probe: %s: %w", u, err)
	}
	return nil
}

func (p *Probe) acquireFile(name string, opts []dom.Option) (*acquisition, error) {
	root := p.cfg.Fetch.FileRoot
	if root == "" {
		return nil, ErrFilesDisabled
	}
	path, err := horosafe.SafePath(root, name)
	if err != nil {
		return nil, fmt.Errorf("probe: %s: %w", name, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("probe: open %s: %w", name, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("probe: stat %s: %w", name, err)
	}
	if st.Size() > p.cfg.Fetch.MaxBody {
		return nil, fmt.Errorf("probe: %s: %w", name, horosafe.ErrTooLarge)
	}
	doc, err := dom.Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("probe: parse %s: %w", name, err)
	}
	return &acquisition{doc: doc, kind: "file"}, nil
}

func (p *Probe) acquireBrowser(ctx context.Context, pageURL, level string) (*acquisition, error) {
	tab, err := browser.OpenTab(ctx, p.manager(level), pageURL)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	root, err := tab.Snapshot(ctx)
	if err != nil {
		tab.Close()
		return nil, fmt.Errorf("probe: %w", err)
	}
	kind := "headless"
	if level == "2" {
		kind = "headful"
	}
	base := pageURL
	if info, err := tab.Page.Info(); err == nil && info.URL != "" {
		base = info.URL
	}
	return &acquisition{doc: dom.FromCDP(root), tab: tab, kind: kind, baseURL: base}, nil
}
