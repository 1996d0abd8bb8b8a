package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/pierce/deepquery"
	"github.com/hazyhaar/pierce/horosafe"
	"github.com/hazyhaar/pierce/probe/internal/store"
)

// Selector is a saved, named query.
type Selector = store.Selector

// Run is one entry of the run history.
type Run = store.Run

// HistoryFilter narrows History. Name selects the runs of a saved selector.
type HistoryFilter struct {
	Name     string `json:"name,omitempty"`
	Selector string `json:"selector,omitempty"`
	Source   string `json:"source,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// ErrNotFound is returned when a saved selector does not exist.
var ErrNotFound = store.ErrNotFound

func (p *Probe) requireStore() error {
	if p.store == nil {
		return ErrNoStore
	}
	return nil
}

// SaveSelector validates and stores sel under sel.Name, replacing any
// selector with the same name.
func (p *Probe) SaveSelector(ctx context.Context, sel Selector) (*Selector, error) {
	if err := p.requireStore(); err != nil {
		return nil, err
	}
	if err := horosafe.ValidateIdentifier(sel.Name); err != nil {
		return nil, fmt.Errorf("%w: name: %v", ErrBadRequest, err)
	}
	if _, err := deepquery.Explain(sel.Selector); err != nil {
		return nil, err
	}
	if sel.Mode == "" {
		sel.Mode = p.cfg.Query.Mode
	}
	if sel.Stealth == "" {
		sel.Stealth = p.cfg.Query.Stealth
	}
	if err := validate(sel.Mode, sel.Stealth); err != nil {
		return nil, err
	}
	if sel.ID == "" {
		sel.ID = p.newID()
	}
	if err := p.store.SaveSelector(ctx, &sel); err != nil {
		return nil, fmt.Errorf("probe: save selector: %w", err)
	}
	p.logger.Info("probe: selector saved", "name", sel.Name, "id", sel.ID)
	return &sel, nil
}

// GetSelector returns the selector called name.
func (p *Probe) GetSelector(ctx context.Context, name string) (*Selector, error) {
	if err := p.requireStore(); err != nil {
		return nil, err
	}
	sel, err := p.store.GetSelector(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("probe: get selector: %w", err)
	}
	if sel == nil {
		return nil, fmt.Errorf("selector %q: %w", name, ErrNotFound)
	}
	return sel, nil
}

// ListSelectors returns every saved selector.
func (p *Probe) ListSelectors(ctx context.Context) ([]*Selector, error) {
	if err := p.requireStore(); err != nil {
		return nil, err
	}
	return p.store.ListSelectors(ctx)
}

// DeleteSelector removes the selector called name. Its history is kept.
func (p *Probe) DeleteSelector(ctx context.Context, name string) error {
	if err := p.requireStore(); err != nil {
		return err
	}
	if err := p.store.DeleteSelector(ctx, name); err != nil {
		return fmt.Errorf("selector %q: %w", name, err)
	}
	p.logger.Info("probe: selector deleted", "name", name)
	return nil
}

// RunRequest runs a saved selector. A non-empty source overrides the saved
// one; HTML runs it against inline markup.
type RunRequest struct {
	Name       string `json:"name"`
	Source     string `json:"source,omitempty"`
	HTML       string `json:"html,omitempty"`
	Markdown   bool   `json:"markdown,omitempty"`
	Highlight  bool   `json:"highlight,omitempty"`
	Screenshot bool   `json:"screenshot,omitempty"`
}

// RunSelector runs a saved selector and records the run.
func (p *Probe) RunSelector(ctx context.Context, r RunRequest) (*QueryResponse, error) {
	sel, err := p.GetSelector(ctx, r.Name)
	if err != nil {
		return nil, err
	}
	req := QueryRequest{
		Selector:   sel.Selector,
		Mode:       sel.Mode,
		Stealth:    sel.Stealth,
		Markdown:   r.Markdown,
		Highlight:  r.Highlight,
		Screenshot: r.Screenshot,
		selectorID: sel.ID,
	}
	src := sel.Source
	if r.Source != "" {
		src = r.Source
	}
	switch {
	case r.HTML != "":
		req.HTML = r.HTML
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req.URL = src
	case src != "":
		req.File = strings.TrimPrefix(src, "file:")
	default:
		return nil, fmt.Errorf("%w: selector %q has no source", ErrBadRequest, r.Name)
	}
	return p.Query(ctx, req)
}

// History lists recorded runs, newest first.
func (p *Probe) History(ctx context.Context, f HistoryFilter) ([]*Run, error) {
	if err := p.requireStore(); err != nil {
		return nil, err
	}
	rf := store.RunFilter{Selector: f.Selector, Source: f.Source, Limit: f.Limit}
	if f.Name != "" {
		sel, err := p.GetSelector(ctx, f.Name)
		if err != nil {
			return nil, err
		}
		rf.SelectorID = sel.ID
	}
	return p.store.ListRuns(ctx, rf)
}
