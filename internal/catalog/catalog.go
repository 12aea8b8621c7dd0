// Package catalog serves the built-in content templates.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inkwell/inkwell/internal/model"
)

//go:embed templates.json
var builtin []byte

// FormField describes one input of a template form.
type FormField struct {
	Label       string `json:"label"`
	Field       string `json:"field"` // input or textarea
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Template is a prompt plus the form that feeds it.
type Template struct {
	Slug        string      `json:"slug"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Icon        string      `json:"icon"`
	Prompt      string      `json:"prompt"`
	Form        []FormField `json:"form"`
}

// MissingRequired returns the names of required form fields absent or blank
// in fields.
func (t Template) MissingRequired(fields model.Fields) []string {
	var missing []string
	for _, f := range t.Form {
		if !f.Required {
			continue
		}
		if v, ok := fields.Get(f.Name); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Catalog is an immutable, ordered set of templates.
type Catalog struct {
	templates []Template
	bySlug    map[string]int
}

// Load parses the embedded template set.
func Load() (*Catalog, error) {
	return Parse(builtin)
}

// Parse builds a catalog from a JSON array of templates.
func Parse(data []byte) (*Catalog, error) {
	var templates []Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	c := &Catalog{templates: templates, bySlug: make(map[string]int, len(templates))}
	for i, t := range templates {
		if t.Slug == "" || t.Name == "" || t.Prompt == "" {
			return nil, fmt.Errorf("template %d: slug, name and prompt are required", i)
		}
		if _, dup := c.bySlug[t.Slug]; dup {
			return nil, fmt.Errorf("duplicate template slug %q", t.Slug)
		}
		c.bySlug[t.Slug] = i
	}
	return c, nil
}

// List returns templates in catalog order. A non-empty category filters
// case-insensitively.
func (c *Catalog) List(category string) []Template {
	out := make([]Template, 0, len(c.templates))
	for _, t := range c.templates {
		if category == "" || strings.EqualFold(t.Category, category) {
			out = append(out, t)
		}
	}
	return out
}

// Get looks up a template by slug.
func (c *Catalog) Get(slug string) (Template, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Template{}, false
	}
	return c.templates[i], true
}

// Categories returns the distinct categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range c.templates {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out
}
