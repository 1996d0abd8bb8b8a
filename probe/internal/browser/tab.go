package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab is one stealth page navigated to a URL.
type Tab struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
	router  *rod.HijackRouter
}

// OpenTab creates a stealth tab, applies resource blocking and navigates to
// pageURL. A load timeout is logged, not returned: the DOM that is there is
// still worth querying.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b, err := mgr.Browser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	mgr.tabOpened()
	t := &Tab{Page: page, PageURL: pageURL, manager: mgr}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		t.router = blockResources(page, mgr.cfg.ResourceBlocking)
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigationTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return t, nil
}

// Snapshot returns the whole DOM, shadow roots included, as one CDP tree.
// Every node is pushed to the client, which also makes backend node IDs
// resolvable for Highlight.
func (t *Tab) Snapshot(ctx context.Context) (*proto.DOMNode, error) {
	depth := -1
	res, err := proto.DOMGetDocument{Depth: &depth, Pierce: true}.Call(t.Page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("browser: get document: %w", err)
	}
	return res.Root, nil
}

const highlightJS = `function(ms) {
	const prev = this.style.outline;
	this.style.outline = '3px solid #e4007c';
	this.scrollIntoView({block: 'center', inline: 'nearest'});
	setTimeout(() => { this.style.outline = prev; }, ms);
}`

// Highlight outlines each node for d and scrolls the first one into view.
// Nodes that no longer exist are skipped; the count of outlined nodes is
// returned.
func (t *Tab) Highlight(ctx context.Context, ids []proto.DOMBackendNodeID, d time.Duration) (int, error) {
	page := t.Page.Context(ctx)
	done := 0
	for _, id := range ids {
		obj, err := proto.DOMResolveNode{BackendNodeID: id}.Call(page)
		if err != nil {
			t.manager.cfg.Logger.Debug("browser: resolve node", "backend_id", id, "error", err)
			continue
		}
		el, err := page.ElementFromObject(obj.Object)
		if err != nil {
			continue
		}
		if _, err := el.Eval(highlightJS, d.Milliseconds()); err != nil {
			return done, fmt.Errorf("browser: highlight: %w", err)
		}
		done++
	}
	return done, nil
}

// Screenshot captures the viewport as PNG.
func (t *Tab) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	png, err := t.Page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return png, nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.router != nil {
		t.router.Stop()
		t.router = nil
	}
	if t.Page == nil {
		return nil
	}
	err := t.Page.Close()
	t.Page = nil
	t.manager.tabClosed()
	return err
}
