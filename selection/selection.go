// Package selection defines the result types produced by a pierce query.
// These are the public contract: the CLI, the HTTP API, the MCP tools and
// the run history all exchange Result values.
package selection

import "github.com/hazyhaar/pierce/dom"

// Mode selects between single and multi-result resolution.
type Mode string

const (
	ModeFirst Mode = "first"
	ModeAll   Mode = "all"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeFirst || m == ModeAll }

// Match is one element found by a query.
type Match struct {
	Index       int               `json:"index"`
	Path        string            `json:"path"` // XPath-like, "/shadow-root" at each boundary
	Tag         string            `json:"tag"`
	Attrs       map[string]string `json:"attrs,omitempty"`
	InShadow    bool              `json:"in_shadow"`
	ShadowDepth int               `json:"shadow_depth"`
	Text        string            `json:"text,omitempty"`
	HTML        string            `json:"html,omitempty"`     // declarative outer HTML
	Markdown    string            `json:"markdown,omitempty"` // flattened, converted
	Hash        string            `json:"hash"`               // SHA-256 of the declarative outer HTML
	BackendID   int               `json:"backend_id,omitempty"`
}

// Result is the outcome of one query.
type Result struct {
	ID        string    `json:"id"` // UUIDv7
	Selector  string    `json:"selector"`
	Source    string    `json:"source"` // URL, file path or "inline"
	Mode      Mode      `json:"mode"`
	Count     int       `json:"count"`
	Matches   []Match   `json:"matches"`
	Hash      string    `json:"hash"` // digest over match hashes, in order
	ElapsedMS int64     `json:"elapsed_ms"`
	Timestamp int64     `json:"timestamp"` // epoch milliseconds
	Stats     dom.Stats `json:"stats"`
}
