package probe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/pierce/kit"
)

type explainRequest struct {
	Selector string `json:"selector"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type emptyRequest struct{}

// typed adapts a typed operation to a kit.Endpoint.
func typed[T any](fn func(context.Context, *T) (any, error)) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		r, ok := req.(*T)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected request type %T", ErrBadRequest, req)
		}
		return fn(ctx, r)
	}
}

// decodeArgs unmarshals JSON arguments into a new *T. Empty input is an
// empty request.
func decodeArgs[T any](data []byte) (*T, error) {
	r := new(T)
	if len(data) == 0 || string(data) == "null" {
		return r, nil
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

// operation is one endpoint exposed by both transports.
type operation struct {
	name        string
	description string
	schema      map[string]any
	endpoint    kit.Endpoint
	decode      func([]byte) (any, error)
}

func decoder[T any]() func([]byte) (any, error) {
	return func(data []byte) (any, error) { return decodeArgs[T](data) }
}

func (p *Probe) operations() []operation {
	ops := []operation{
		{
			name:        "query",
			description: "Resolve a shadow-piercing CSS selector against inline HTML, a file or a URL. Descendant combinators cross open shadow roots; '>>>' forces the next stage into the previous match's subtree.",
			schema: inputSchema(map[string]any{
				"selector":     prop("string", "Selector, e.g. \"x-app >>> li.item\""),
				"html":         prop("string", "Inline HTML source"),
				"file":         prop("string", "File path under fetch.file_root"),
				"url":          prop("string", "URL source"),
				"mode":         enum("Return the first match or all matches", "first", "all"),
				"stealth":      enum("URL acquisition level", "0", "1", "2", "auto"),
				"no_shadow":    prop("boolean", "Parse without shadow roots (native matching only)"),
				"include_html": prop("boolean", "Include outer HTML of each match"),
				"markdown":     prop("boolean", "Include markdown of each match"),
				"sanitize":     prop("boolean", "Sanitise HTML output"),
				"max_text":     prop("integer", "Truncate text to this many bytes"),
				"highlight":    prop("boolean", "Outline matches on the live page"),
				"screenshot":   prop("boolean", "Capture a PNG of the live page"),
				"record":       prop("boolean", "Record the run in history"),
			}, []string{"selector"}),
			endpoint: typed(func(ctx context.Context, r *QueryRequest) (any, error) {
				return p.Query(ctx, *r)
			}),
			decode: decoder[QueryRequest](),
		},
		{
			name:        "explain",
			description: "Validate a selector and show its stages, comma alternatives and per-component segments.",
			schema: inputSchema(map[string]any{
				"selector": prop("string", "Selector to explain"),
			}, []string{"selector"}),
			endpoint: typed(func(_ context.Context, r *explainRequest) (any, error) {
				return Explain(r.Selector)
			}),
			decode: decoder[explainRequest](),
		},
		{
			name:        "save_selector",
			description: "Save a named selector with its default source, mode and stealth level.",
			schema: inputSchema(map[string]any{
				"name":     prop("string", "Name: letters, digits, '_', '-', '.'"),
				"selector": prop("string", "Selector"),
				"source":   prop("string", "URL or file path"),
				"mode":     enum("Match mode", "first", "all"),
				"stealth":  enum("URL acquisition level", "0", "1", "2", "auto"),
			}, []string{"name", "selector"}),
			endpoint: typed(func(ctx context.Context, r *Selector) (any, error) {
				return p.SaveSelector(ctx, *r)
			}),
			decode: decoder[Selector](),
		},
		{
			name:        "list_selectors",
			description: "List saved selectors.",
			schema:      inputSchema(map[string]any{}, nil),
			endpoint: typed(func(ctx context.Context, _ *emptyRequest) (any, error) {
				return p.ListSelectors(ctx)
			}),
			decode: decoder[emptyRequest](),
		},
		{
			name:        "delete_selector",
			description: "Delete a saved selector. Its run history is kept.",
			schema: inputSchema(map[string]any{
				"name": prop("string", "Selector name"),
			}, []string{"name"}),
			endpoint: typed(func(ctx context.Context, r *nameRequest) (any, error) {
				if err := p.DeleteSelector(ctx, r.Name); err != nil {
					return nil, err
				}
				return map[string]string{"deleted": r.Name}, nil
			}),
			decode: decoder[nameRequest](),
		},
		{
			name:        "run_selector",
			description: "Run a saved selector and record the run; reports whether the result changed since the previous run.",
			schema: inputSchema(map[string]any{
				"name":       prop("string", "Selector name"),
				"source":     prop("string", "Override the saved source"),
				"html":       prop("string", "Run against inline HTML instead"),
				"markdown":   prop("boolean", "Include markdown"),
				"highlight":  prop("boolean", "Outline matches on the live page"),
				"screenshot": prop("boolean", "Capture a PNG of the live page"),
			}, []string{"name"}),
			endpoint: typed(func(ctx context.Context, r *RunRequest) (any, error) {
				return p.RunSelector(ctx, *r)
			}),
			decode: decoder[RunRequest](),
		},
		{
			name:        "history",
			description: "List recorded runs, newest first.",
			schema: inputSchema(map[string]any{
				"name":     prop("string", "Saved selector name"),
				"selector": prop("string", "Raw selector"),
				"source":   prop("string", "Source"),
				"limit":    prop("integer", "Max runs (default 50)"),
			}, nil),
			endpoint: typed(func(ctx context.Context, r *HistoryFilter) (any, error) {
				return p.History(ctx, *r)
			}),
			decode: decoder[HistoryFilter](),
		},
	}
	for i := range ops {
		ops[i].endpoint = kit.Logging(p.logger, ops[i].name)(ops[i].endpoint)
	}
	return ops
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func enum(desc string, values ...string) map[string]any {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return map[string]any{"type": "string", "enum": vs, "description": desc}
}
