package msgcat

import (
    _ "embed"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"
    "text/template"

    yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultMessages []byte

type entry struct {
    origin string
    tpl    *template.Template
}

// Catalog maps dotted keys (status.checkmate, errors.illegal_move) to templates.
// Every template is parsed at load time; rendering with missing data is an error.
type Catalog struct {
    mu      sync.RWMutex
    entries map[string]entry
}

// New loads the embedded English messages, then every *.yaml / *.yml file of overrideDir
// in name order. Two override files defining the same key is an error.
func New(overrideDir string) (*Catalog, error) {
    c := &Catalog{entries: make(map[string]entry)}
    if err := c.load(defaultMessages, "embedded"); err != nil {
        return nil, fmt.Errorf("embedded messages: %w", err)
    }
    dir := strings.TrimSpace(overrideDir)
    if dir == "" {
        return c, nil
    }
    files, err := overrideFiles(dir)
    if err != nil {
        return nil, err
    }
    owner := make(map[string]string)
    for _, path := range files {
        raw, err := os.ReadFile(path)
        if err != nil { return nil, fmt.Errorf("read %s: %w", path, err) }
        leaves, err := decode(raw)
        if err != nil { return nil, fmt.Errorf("parse %s: %w", path, err) }
        name := filepath.Base(path)
        for k := range leaves {
            if prev, dup := owner[k]; dup {
                return nil, fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
            }
            owner[k] = name
        }
        if err := c.merge(leaves, name); err != nil { return nil, err }
    }
    return c, nil
}

func overrideFiles(dir string) ([]string, error) {
    entries, err := os.ReadDir(dir)
    if err != nil {
        return nil, fmt.Errorf("read messages dir: %w", err)
    }
    var out []string
    for _, e := range entries {
        switch strings.ToLower(filepath.Ext(e.Name())) {
        case ".yaml", ".yml":
            if !e.IsDir() { out = append(out, filepath.Join(dir, e.Name())) }
        }
    }
    sort.Strings(out)
    return out, nil
}

// load replaces keys from one YAML document.
func (c *Catalog) load(raw []byte, origin string) error {
    leaves, err := decode(raw)
    if err != nil { return err }
    return c.merge(leaves, origin)
}

func (c *Catalog) merge(leaves map[string]string, origin string) error {
    parsed := make(map[string]entry, len(leaves))
    for k, src := range leaves {
        t, err := template.New(k).Option("missingkey=error").Parse(src)
        if err != nil { return fmt.Errorf("%s: key %s: %w", origin, k, err) }
        parsed[k] = entry{origin: origin, tpl: t}
    }
    c.mu.Lock()
    for k, e := range parsed { c.entries[k] = e }
    c.mu.Unlock()
    return nil
}

// decode flattens nested YAML mappings into dotted keys. Leaves must be strings.
func decode(raw []byte) (map[string]string, error) {
    var doc yaml.Node
    if err := yaml.Unmarshal(raw, &doc); err != nil {
        return nil, err
    }
    out := make(map[string]string)
    if len(doc.Content) == 0 {
        return out, nil
    }
    if err := walk(doc.Content[0], "", out); err != nil {
        return nil, err
    }
    return out, nil
}

func walk(n *yaml.Node, prefix string, out map[string]string) error {
    switch n.Kind {
    case yaml.MappingNode:
        for i := 0; i+1 < len(n.Content); i += 2 {
            key := n.Content[i].Value
            if prefix != "" { key = prefix + "." + key }
            if err := walk(n.Content[i+1], key, out); err != nil { return err }
        }
        return nil
    case yaml.ScalarNode:
        if prefix == "" {
            return fmt.Errorf("line %d: value without key", n.Line)
        }
        if n.Tag == "!!null" { return nil }
        if n.Tag != "!!str" {
            return fmt.Errorf("line %d: %s must be a string, got %s", n.Line, prefix, n.Tag)
        }
        out[prefix] = n.Value
        return nil
    default:
        return fmt.Errorf("line %d: unsupported node at %q", n.Line, prefix)
    }
}

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
    c.mu.RLock()
    defer c.mu.RUnlock()
    _, ok := c.entries[strings.TrimSpace(key)]
    return ok
}

// Keys lists every defined key in order.
func (c *Catalog) Keys() []string {
    c.mu.RLock()
    out := make([]string, 0, len(c.entries))
    for k := range c.entries { out = append(out, k) }
    c.mu.RUnlock()
    sort.Strings(out)
    return out
}

// Origin names the file that defined key ("embedded" for defaults).
func (c *Catalog) Origin(key string) string {
    c.mu.RLock()
    defer c.mu.RUnlock()
    return c.entries[strings.TrimSpace(key)].origin
}

func (c *Catalog) Render(key string, data any) (string, error) {
    key = strings.TrimSpace(key)
    c.mu.RLock()
    e, ok := c.entries[key]
    c.mu.RUnlock()
    if !ok {
        return "", fmt.Errorf("message not found: %s", key)
    }
    var b strings.Builder
    if err := e.tpl.Execute(&b, data); err != nil { return "", err }
    return b.String(), nil
}

// RenderOr renders key, or returns fallback on any error. A nil catalog yields fallback.
func (c *Catalog) RenderOr(key string, data any, fallback string) string {
    if c == nil { return fallback }
    out, err := c.Render(key, data)
    if err != nil { return fallback }
    return out
}
