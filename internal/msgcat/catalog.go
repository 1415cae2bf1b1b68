// Package msgcat holds the room-notice templates: an embedded English
// catalog plus an optional override directory.
package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

// Key names one notice template, dotted per the yaml nesting.
type Key string

// The notices the coordinator emits.
const (
	KeyJoinWhite     Key = "join.white"
	KeyJoinBlack     Key = "join.black"
	KeyJoinSpectator Key = "join.spectator"
	KeyLeaveSeat     Key = "leave.seat"
	KeyGameStarted   Key = "game.started"
	KeyGameOver      Key = "game.over"
)

// Catalog maps keys to templates compiled at load time, so a malformed
// template fails process startup instead of the first matching notice.
type Catalog struct {
	mu        sync.RWMutex
	templates map[Key]*template.Template
}

// New loads the embedded default messages and then applies overrides from
// dir if provided. Override files may replace any subset of keys; defining
// the same key in two override files is an error.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{templates: make(map[Key]*template.Template)}

	raw, err := fs.ReadFile(defaultFiles, "messages.en.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded messages: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Render executes the template for key. Missing keys and missing data
// fields both error; callers fall back to silence.
func (c *Catalog) Render(key Key, data any) (string, error) {
	c.mu.RLock()
	tpl, ok := c.templates[key]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read template dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	seen := make(map[Key]string) // key -> defining file
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		compiled, err := compileYAML(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range compiled {
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("key %q defined in both %s and %s", k, prev, name)
			}
			seen[k] = name
		}
		c.install(compiled)
	}
	return nil
}

func (c *Catalog) applyYAML(b []byte) error {
	compiled, err := compileYAML(b)
	if err != nil {
		return err
	}
	c.install(compiled)
	return nil
}

func (c *Catalog) install(compiled map[Key]*template.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, tpl := range compiled {
		c.templates[k] = tpl
	}
}

func compileYAML(b []byte) (map[Key]*template.Template, error) {
	var root map[string]any
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}
	flat := make(map[Key]string)
	if err := flatten(root, "", flat); err != nil {
		return nil, err
	}

	out := make(map[Key]*template.Template, len(flat))
	for k, text := range flat {
		if strings.TrimSpace(text) == "" {
			continue
		}
		tpl, err := template.New(string(k)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", k, err)
		}
		out[k] = tpl
	}
	return out, nil
}

func flatten(src any, prefix string, out map[Key]string) error {
	switch v := src.(type) {
	case map[string]any:
		for name, child := range v {
			key := name
			if prefix != "" {
				key = prefix + "." + name
			}
			if err := flatten(child, key, out); err != nil {
				return err
			}
		}
		return nil
	case string:
		if prefix == "" {
			return errors.New("string value without key prefix")
		}
		out[Key(prefix)] = v
		return nil
	case nil:
		return nil
	default:
		// Only string leaves are allowed to avoid type confusion
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
}
