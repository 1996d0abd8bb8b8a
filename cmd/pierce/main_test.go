package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

const page = `<x-list><template shadowrootmode="open"><li>a</li><li>b</li></template></x-list>`

func TestQueryCommand(t *testing.T) {
	out, err := execute(t, "query", "x-list li", "--html", page)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.Count != 2 {
		t.Errorf("count: got %d", resp.Count)
	}

	if _, err := execute(t, "query", "li[", "--html", page); err == nil {
		t.Error("expected invalid selector error")
	}
}

func TestQueryCommand_Stdin(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(page))
	cmd.SetArgs([]string{"query", "li", "--stdin", "--mode", "first"})
	if err := cmd.ExecuteContext(t.Context()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"count": 1`) {
		t.Errorf("output: %s", out.String())
	}
}

func TestExplainCommand(t *testing.T) {
	out, err := execute(t, "explain", "x-app >>> li, p")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"final": true`) {
		t.Errorf("output: %s", out)
	}
}

func TestSelectorsCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "pierce.db")

	if _, err := execute(t, "--db", db, "selectors", "save", "items", "x-list li"); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := execute(t, "--db", db, "selectors", "list")
	if err != nil || !strings.Contains(out, `"name": "items"`) {
		t.Fatalf("list: %v %s", err, out)
	}
	if _, err := execute(t, "--db", db, "selectors", "run", "items"); err == nil {
		t.Error("run without a source should fail")
	}
	if _, err := execute(t, "--db", db, "selectors", "delete", "items"); err != nil {
		t.Errorf("delete: %v", err)
	}
	if _, err := execute(t, "selectors", "list"); err == nil {
		t.Error("list without a database should fail")
	}
}
