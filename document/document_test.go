package document

import (
	"testing"

	"github.com/use-agent/gleaner/selector"
)

func TestParse_LenientMarkup(t *testing.T) {
	// x/net/html repairs unclosed tags and stray text without failing.
	cases := []string{
		"<html><body><p>ok</p></body></html>",
		"<p>unclosed",
		"just text, no tags",
		"",
		"<table><tr><td>orphan table",
	}
	for _, markup := range cases {
		if _, err := Parse(markup); err != nil {
			t.Errorf("Parse(%q) failed: %v", markup, err)
		}
	}
}

func TestQuery_DocumentOrder(t *testing.T) {
	doc, err := Parse(`<div><span>a</span><p><span>b</span></p><span>c</span></div>`)
	if err != nil {
		t.Fatal(err)
	}

	nodes := doc.Query(selector.MustNew("span"))
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	want := []string{"a", "b", "c"}
	for i, n := range nodes {
		if got := selector.Text(n); got != want[i] {
			t.Errorf("node %d: got %q, want %q", i, got, want[i])
		}
	}
}

func TestFirst_NoMatch(t *testing.T) {
	doc, err := Parse(`<p>hello</p>`)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.First(selector.MustNew("table")); ok {
		t.Error("expected no match")
	}
}

func TestTitle(t *testing.T) {
	doc, err := Parse(`<html><head><title>  A   Page </title></head><body></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Title(); got != "A Page" {
		t.Errorf("got %q, want %q", got, "A Page")
	}

	empty, _ := Parse(`<p>no title</p>`)
	if got := empty.Title(); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
}

func TestFind_GoqueryInterop(t *testing.T) {
	doc, err := Parse(`<ul><li>x</li><li>y</li></ul>`)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Find(selector.MustNew("li")).Length(); got != 2 {
		t.Errorf("expected 2 selections, got %d", got)
	}
}

func TestZeroValueDocument(t *testing.T) {
	// Error paths return Document{}; all queries on it must come back
	// empty rather than panic.
	var doc Document
	sel := selector.MustNew("li")

	if got := doc.Query(sel); got != nil {
		t.Errorf("Query: got %v", got)
	}
	if _, ok := doc.First(sel); ok {
		t.Error("First: expected no match")
	}
	if got := doc.Find(sel).Length(); got != 0 {
		t.Errorf("Find: expected empty selection, got %d nodes", got)
	}
	if got := doc.Title(); got != "" {
		t.Errorf("Title: got %q", got)
	}
}
