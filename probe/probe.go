// Package probe is the service around deepquery: it acquires a document
// (inline HTML, a local file, or a URL over HTTP or through Chrome), runs a
// shadow-piercing query, builds a selection.Result, optionally highlights
// the matches on the live page, and records the run.
//
// Stealth levels for URL sources:
//
//	0     HTTP GET, declarative shadow roots only
//	1     headless Chrome (go-rod + stealth), CDP snapshot with shadow roots
//	2     headful Chrome under Xvfb
//	auto  HTTP first, escalate to 1 when the body is thin or relies on
//	      script-attached shadow roots
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pierce/dbopen"
	"github.com/hazyhaar/pierce/deepquery"
	"github.com/hazyhaar/pierce/horosafe"
	"github.com/hazyhaar/pierce/idgen"
	"github.com/hazyhaar/pierce/probe/internal/browser"
	"github.com/hazyhaar/pierce/probe/internal/fetcher"
	"github.com/hazyhaar/pierce/probe/internal/store"
	"github.com/hazyhaar/pierce/selection"
)

// Probe runs queries against acquired documents.
type Probe struct {
	cfg     *Config
	logger  *slog.Logger
	newID   idgen.Generator
	fetcher *fetcher.Fetcher
	store   *store.Store
	ownsDB  bool

	mu       sync.Mutex
	managers map[string]*browser.Manager // by stealth level "1" / "2"
}

// Option configures a Probe.
type Option func(*Probe)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Probe) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithIDGenerator overrides the UUIDv7 generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(p *Probe) {
		if g != nil {
			p.newID = g
		}
	}
}

// WithStore uses an already opened store instead of cfg.Store.Path. The
// caller keeps ownership.
func WithStore(s *store.Store) Option {
	return func(p *Probe) { p.store = s }
}

// New creates a Probe. A nil cfg means DefaultConfig. The store is opened
// when cfg.Store.Path is set; Chrome is only launched on first use.
func New(cfg *Config, opts ...Option) (*Probe, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Probe{
		cfg:      cfg,
		logger:   slog.Default(),
		newID:    idgen.Default,
		managers: make(map[string]*browser.Manager),
	}
	for _, o := range opts {
		o(p)
	}

	p.fetcher = fetcher.New(
		fetcher.WithClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
		fetcher.WithLogger(p.logger),
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
		fetcher.WithRateLimit(cfg.Fetch.RateLimit, cfg.Fetch.Burst),
		fetcher.WithMaxBody(cfg.Fetch.MaxBody),
		fetcher.WithAllowPrivate(cfg.Fetch.AllowPrivate),
	)

	if p.store == nil && cfg.Store.Path != "" {
		s, err := store.Open(cfg.Store.Path, dbopen.WithBusyTimeout(cfg.Store.BusyTimeoutMS))
		if err != nil {
			return nil, fmt.Errorf("probe: open store: %w", err)
		}
		p.store = s
		p.ownsDB = true
	}
	return p, nil
}

// Close shuts down any Chrome instance and the owned store.
func (p *Probe) Close() error {
	p.mu.Lock()
	for level, m := range p.managers {
		m.Close()
		delete(p.managers, level)
	}
	p.mu.Unlock()
	if p.ownsDB {
		return p.store.Close()
	}
	return nil
}

func (p *Probe) manager(level string) *browser.Manager {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.managers[level]; ok {
		return m
	}
	bc := p.cfg.Browser
	m := browser.NewManager(browser.Config{
		RemoteURL:         bc.Remote,
		Headful:           level == "2",
		XvfbDisplay:       bc.XvfbDisplay,
		RecycleInterval:   bc.RecycleInterval,
		NavigationTimeout: bc.NavigationTimeout,
		ResourceBlocking:  bc.ResourceBlocking,
		Logger:            p.logger,
	})
	p.managers[level] = m
	return m
}

// QueryRequest describes one query. Exactly one of HTML, File and URL is set.
type QueryRequest struct {
	Selector string `json:"selector"`

	HTML string `json:"html,omitempty"`
	File string `json:"file,omitempty"` // relative to fetch.file_root
	URL  string `json:"url,omitempty"`

	Mode    string `json:"mode,omitempty"`    // first | all, default query.mode
	Stealth string `json:"stealth,omitempty"` // 0 | 1 | 2 | auto, default query.stealth

	// NoShadow parses inline and HTTP sources without declarative shadow
	// roots, so queries fall back to plain native matching.
	NoShadow bool `json:"no_shadow,omitempty"`

	IncludeHTML bool `json:"include_html,omitempty"`
	Markdown    bool `json:"markdown,omitempty"`
	Sanitize    bool `json:"sanitize,omitempty"`
	MaxText     int  `json:"max_text,omitempty"`

	Highlight  bool `json:"highlight,omitempty"`
	Screenshot bool `json:"screenshot,omitempty"`

	// Record stores the run in the history when a store is configured.
	Record bool `json:"record,omitempty"`

	selectorID string
}

// QueryResponse is a selection.Result plus acquisition details.
type QueryResponse struct {
	*selection.Result
	Acquired    string `json:"acquired"` // inline | file | http | headless | headful
	Escalation  string `json:"escalation,omitempty"`
	Highlighted int    `json:"highlighted,omitempty"`
	Screenshot  []byte `json:"screenshot,omitempty"`
	Changed     bool   `json:"changed,omitempty"`
	RunID       string `json:"run_id,omitempty"`
}

func (r *QueryRequest) source() string {
	switch {
	case r.URL != "":
		return r.URL
	case r.File != "":
		return "file:" + r.File
	default:
		return "inline"
	}
}

func (p *Probe) normalize(req *QueryRequest) error {
	n := 0
	for _, s := range []string{req.HTML, req.File, req.URL} {
		if s != "" {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("%w: exactly one of html, file and url is required", ErrBadRequest)
	}
	if req.Mode == "" {
		req.Mode = p.cfg.Query.Mode
	}
	if req.Stealth == "" {
		req.Stealth = p.cfg.Query.Stealth
	}
	if err := validate(req.Mode, req.Stealth); err != nil {
		return err
	}
	if !req.Markdown {
		req.Markdown = p.cfg.Query.Markdown
	}
	if req.MaxText == 0 {
		req.MaxText = p.cfg.Query.MaxText
	}
	return nil
}

func validate(mode, stealth string) error {
	if !selection.Mode(mode).Valid() {
		return fmt.Errorf("%w: mode %q", ErrBadRequest, mode)
	}
	switch stealth {
	case "0", "1", "2", "auto":
		return nil
	}
	return fmt.Errorf("%w: stealth %q", ErrBadRequest, stealth)
}

// Query acquires the source, runs the selector and describes the matches.
// The selector is validated before anything is fetched.
func (p *Probe) Query(ctx context.Context, req QueryRequest) (resp *QueryResponse, err error) {
	started := time.Now()
	if err := p.normalize(&req); err != nil {
		return nil, err
	}
	if _, err := deepquery.Explain(req.Selector); err != nil {
		return nil, err
	}

	if req.Record || req.selectorID != "" {
		defer func() { p.recordRun(ctx, req, resp, err, started) }()
	}

	acq, err := p.acquire(ctx, req)
	if err != nil {
		return nil, err
	}
	defer acq.close()

	q := deepquery.New(acq.doc, deepquery.WithLogger(p.logger))
	var nodes []*html.Node
	if selection.Mode(req.Mode) == selection.ModeFirst {
		n, err := q.First(req.Selector)
		if err != nil {
			return nil, err
		}
		if n != nil {
			nodes = append(nodes, n)
		}
	} else if nodes, err = q.All(req.Selector); err != nil {
		return nil, err
	}

	res, err := selection.Build(acq.doc, nodes, selection.Options{
		Selector: req.Selector,
		Source:   req.source(),
		Mode:     selection.Mode(req.Mode),
		HTML:     req.IncludeHTML,
		Markdown: req.Markdown,
		Sanitize: req.Sanitize,
		MaxText:  req.MaxText,
		BaseURL:  acq.baseURL,
		Started:  started,
	})
	if err != nil {
		return nil, fmt.Errorf("probe: build result: %w", err)
	}
	res.ID = p.newID()
	resp = &QueryResponse{Result: res, Acquired: acq.kind, Escalation: acq.escalation}

	if req.Highlight || req.Screenshot {
		if acq.tab == nil {
			return nil, ErrNoLivePage
		}
		if err := p.decorate(ctx, acq, nodes, req, resp); err != nil {
			return nil, err
		}
	}

	p.logger.Info("probe: query",
		"selector", req.Selector, "source", res.Source, "acquired", acq.kind,
		"matches", res.Count, "elapsed_ms", res.ElapsedMS)
	return resp, nil
}

func (p *Probe) decorate(ctx context.Context, acq *acquisition, nodes []*html.Node, req QueryRequest, resp *QueryResponse) error {
	d := p.cfg.Query.HighlightDuration
	if req.Highlight {
		ids := make([]proto.DOMBackendNodeID, 0, len(nodes))
		for _, n := range nodes {
			if id, ok := acq.doc.BackendID(n); ok {
				ids = append(ids, id)
			}
		}
		n, err := acq.tab.Highlight(ctx, ids, d)
		if err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		resp.Highlighted = n
	}
	if req.Screenshot {
		png, err := acq.tab.Screenshot(ctx, false)
		if err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		resp.Screenshot = png
	}
	// A headful window stays up while the outline is visible.
	if req.Highlight && acq.kind == "headful" {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
	return nil
}

func (p *Probe) recordRun(ctx context.Context, req QueryRequest, resp *QueryResponse, qerr error, started time.Time) {
	if p.store == nil {
		return
	}
	run := &store.Run{
		ID:         p.newID(),
		SelectorID: req.selectorID,
		Selector:   req.Selector,
		Source:     req.source(),
		ElapsedMS:  time.Since(started).Milliseconds(),
	}
	if qerr != nil {
		run.Error = qerr.Error()
	} else {
		run.MatchCount = resp.Count
		run.ResultHash = resp.Hash
	}
	// The run is history even when the caller has gone away.
	if err := p.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		p.logger.Warn("probe: record run", "selector", req.Selector, "error", err)
		return
	}
	if resp != nil {
		resp.Changed = run.Changed
		resp.RunID = run.ID
	}
}

// Explain returns the validated plan for selector. It needs no document.
func Explain(selector string) (*deepquery.Plan, error) {
	return deepquery.Explain(selector)
}

// IsBadRequest reports whether err is caused by the request itself: a bad
// selector, missing or conflicting parameters, an unsafe URL or path.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, deepquery.ErrInvalidSelector) ||
		errors.Is(err, ErrNoLivePage) ||
		errors.Is(err, ErrFilesDisabled) ||
		errors.Is(err, horosafe.ErrSSRF) ||
		errors.Is(err, horosafe.ErrUnsafeScheme) ||
		errors.Is(err, horosafe.ErrPathTraversal)
}
