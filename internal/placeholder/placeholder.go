// Package placeholder holds the catalog of tokens offered in the editor sidebar.
package placeholder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/debemdeboas/the-draftroom/internal/config"
)

var ErrUnknownPlaceholder = errors.New(config.ErrInvalidPlaceholder)

// Placeholder is a token the user can drop into a document, such as {{client_name}}.
type Placeholder struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	Group       string `json:"group"`
	Description string `json:"description,omitempty"`
}

type Group struct {
	Name         string        `json:"name"`
	Placeholders []Placeholder `json:"placeholders"`
}

type Catalog struct {
	items  []Placeholder
	byCode map[string]int
}

const defaultGroup = "General"

func NewCatalog(entries []config.PlaceholderConfig) (*Catalog, error) {
	c := &Catalog{byCode: make(map[string]int, len(entries))}
	for i, e := range entries {
		code := strings.TrimSpace(e.Code)
		if !IsToken(code) {
			return nil, fmt.Errorf("placeholder %d: %q is not a {{token}}", i, e.Code)
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("placeholder %d: duplicate code %q", i, code)
		}
		p := Placeholder{
			Code:        code,
			Label:       e.Label,
			Group:       e.Group,
			Description: e.Description,
		}
		if p.Label == "" {
			p.Label = Name(code)
		}
		if p.Group == "" {
			p.Group = defaultGroup
		}
		c.byCode[code] = len(c.items)
		c.items = append(c.items, p)
	}
	return c, nil
}

// IsToken reports whether s is exactly one placeholder token.
func IsToken(s string) bool {
	loc := config.RegexPlaceholder.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// Name returns the bare name inside a token: "{{ client_name }}" -> "client_name".
func Name(code string) string {
	m := config.RegexPlaceholder.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}

func (c *Catalog) All() []Placeholder {
	out := make([]Placeholder, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int {
	return len(c.items)
}

func (c *Catalog) Lookup(code string) (Placeholder, bool) {
	i, ok := c.byCode[strings.TrimSpace(code)]
	if !ok {
		return Placeholder{}, false
	}
	return c.items[i], true
}

// Resolve validates a code sent by the browser. Any well-formed token is
// accepted; catalog entries are returned with their metadata.
func (c *Catalog) Resolve(code string) (Placeholder, error) {
	code = strings.TrimSpace(code)
	if p, ok := c.Lookup(code); ok {
		return p, nil
	}
	if !IsToken(code) {
		return Placeholder{}, fmt.Errorf("%w: %q", ErrUnknownPlaceholder, code)
	}
	return Placeholder{Code: code, Label: Name(code), Group: defaultGroup}, nil
}

// Groups returns the catalog grouped for the sidebar, groups in order of first appearance.
func (c *Catalog) Groups() []Group {
	var groups []Group
	index := make(map[string]int)
	for _, p := range c.items {
		i, ok := index[p.Group]
		if !ok {
			i = len(groups)
			index[p.Group] = i
			groups = append(groups, Group{Name: p.Group})
		}
		groups[i].Placeholders = append(groups[i].Placeholders, p)
	}
	return groups
}

// Usage is a catalog entry together with whether the draft contains it.
type Usage struct {
	Placeholder
	Used bool `json:"used"`
}

// Find reports which catalog tokens appear in content. Tokens are compared by
// name, so "{{ date }}" in the draft counts as a use of "{{date}}".
func (c *Catalog) Find(content []byte) []Usage {
	used := make(map[string]bool)
	for _, m := range config.RegexPlaceholder.FindAllSubmatch(content, -1) {
		used[string(m[1])] = true
	}
	out := make([]Usage, len(c.items))
	for i, p := range c.items {
		out[i] = Usage{Placeholder: p, Used: used[Name(p.Code)]}
	}
	return out
}

// Unknown lists tokens in content that are not in the catalog.
func (c *Catalog) Unknown(content []byte) []string {
	known := make(map[string]bool, len(c.items))
	for _, p := range c.items {
		known[Name(p.Code)] = true
	}
	var out []string
	seen := make(map[string]bool)
	for _, m := range config.RegexPlaceholder.FindAllSubmatch(content, -1) {
		name := string(m[1])
		if known[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, string(m[0]))
	}
	return out
}
