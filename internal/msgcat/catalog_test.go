package msgcat

import (
    "os"
    "path/filepath"
    "sort"
    "strings"
    "testing"
)

func TestNew_EmbeddedDefaults(t *testing.T) {
    c, err := New("")
    if err != nil { t.Fatalf("New: %v", err) }
    got, err := c.Render("status.checkmate", map[string]any{"Winner": "Black"})
    if err != nil || got != "Checkmate. Black wins." { t.Fatalf("Render = %q, %v", got, err) }
    for _, key := range []string{"errors.illegal_move", "status.promote", "move.applied", "game.result"} {
        if !c.Has(key) { t.Fatalf("missing default %q", key) }
    }
}

func TestRender_MissingKeyIsError(t *testing.T) {
    c, err := New("")
    if err != nil { t.Fatalf("New: %v", err) }
    if _, err := c.Render("status.checkmate", map[string]any{}); err == nil { t.Fatalf("expected missing data error") }
    if _, err := c.Render("no.such.key", nil); err == nil { t.Fatalf("expected unknown key error") }
    if got := c.RenderOr("no.such.key", nil, "fallback"); got != "fallback" { t.Fatalf("RenderOr = %q", got) }
    var nilCat *Catalog
    if got := nilCat.RenderOr("status.turn", nil, "x"); got != "x" { t.Fatalf("nil RenderOr = %q", got) }
}

func TestNew_OverrideDir(t *testing.T) {
    dir := t.TempDir()
    if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("status:\n  stalemate: \"Pat!\"\n"), 0o644); err != nil { t.Fatal(err) }
    if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil { t.Fatal(err) }
    c, err := New(dir)
    if err != nil { t.Fatalf("New: %v", err) }
    // a later load replaces the parsed template
    if got, _ := c.Render("status.stalemate", nil); got != "Pat!" || c.Origin("status.stalemate") != "a.yaml" { t.Fatalf("override = %q", got) }
    if c.Origin("status.turn") != "embedded" { t.Fatalf("origin = %q", c.Origin("status.turn")) }
    if err := c.load([]byte("status:\n  stalemate: \"Draw.\"\n"), "reload"); err != nil { t.Fatal(err) }
    if got, _ := c.Render("status.stalemate", nil); got != "Draw." { t.Fatalf("after reload = %q", got) }
}

func TestNew_DuplicateOverrideKeys(t *testing.T) {
    dir := t.TempDir()
    for _, name := range []string{"a.yaml", "b.yml"} {
        if err := os.WriteFile(filepath.Join(dir, name), []byte("errors:\n  internal: \"x\"\n"), 0o644); err != nil { t.Fatal(err) }
    }
    if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
        t.Fatalf("err = %v", err)
    }
}

func TestNew_RejectsNonStringLeaves(t *testing.T) {
    dir := t.TempDir()
    if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("status:\n  turn: 3\n"), 0o644); err != nil { t.Fatal(err) }
    if _, err := New(dir); err == nil { t.Fatalf("expected error for integer leaf") }
}

func TestNew_RejectsBrokenTemplate(t *testing.T) {
    dir := t.TempDir()
    if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("status:\n  turn: \"{{.Turn\"\n"), 0o644); err != nil { t.Fatal(err) }
    if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "status.turn") { t.Fatalf("err = %v", err) }
}

func TestKeys_SortedAndComplete(t *testing.T) {
    c, err := New("")
    if err != nil { t.Fatalf("New: %v", err) }
    keys := c.Keys()
    if len(keys) == 0 || !sort.StringsAreSorted(keys) { t.Fatalf("keys = %v", keys) }
    for _, k := range keys {
        if !c.Has(k) { t.Fatalf("Keys lists unknown %q", k) }
    }
}
