// Package locale holds the per-language chat tables: the assistant preamble,
// few-shot example turns and the agent summary prompt.
package locale

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tableFS embed.FS

// Fallback is used when no table matches the requested locale
const Fallback = "en"

// Turn is one example message of the few-shot conversation
type Turn struct {
	Role string `yaml:"role"`
	Text string `yaml:"text"`
}

// Table is the chat configuration for one language
type Table struct {
	Tag      string `yaml:"-"`
	Preamble string `yaml:"preamble"`
	Examples []Turn `yaml:"examples"`
	Summary  string `yaml:"summary"`
	AllTime  string `yaml:"all_time"`

	summary *template.Template
}

// SummaryMetric is one line of the agent summary prompt
type SummaryMetric struct {
	Name  string
	Value string
}

// SummaryData fills the summary prompt template
type SummaryData struct {
	Username string
	Period   string
	Metrics  []SummaryMetric
}

// RenderSummary renders the agent summary prompt
func (t *Table) RenderSummary(data SummaryData) (string, error) {
	var buf bytes.Buffer
	if err := t.summary.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s summary prompt: %w", t.Tag, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Catalog matches requested locales against the embedded tables
type Catalog struct {
	tables  map[string]*Table
	tags    []language.Tag
	matcher language.Matcher
}

// Load parses every embedded table. The fallback table is always first in
// the matcher so unmatched locales resolve to it.
func Load() (*Catalog, error) {
	entries, err := tableFS.ReadDir("tables")
	if err != nil {
		return nil, fmt.Errorf("failed to read locale tables: %w", err)
	}

	c := &Catalog{tables: make(map[string]*Table, len(entries))}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		raw, err := tableFS.ReadFile("tables/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", name, err)
		}
		table, err := parseTable(name, raw)
		if err != nil {
			return nil, err
		}
		c.tables[name] = table
		names = append(names, name)
	}

	if _, ok := c.tables[Fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q is missing", Fallback)
	}

	sort.Slice(names, func(i, j int) bool {
		if names[i] == Fallback {
			return true
		}
		if names[j] == Fallback {
			return false
		}
		return names[i] < names[j]
	})
	for _, n := range names {
		c.tags = append(c.tags, language.MustParse(n))
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func parseTable(name string, raw []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("failed to parse locale %s: %w", name, err)
	}
	if strings.TrimSpace(t.Preamble) == "" {
		return nil, fmt.Errorf("locale %s has no preamble", name)
	}
	for i, turn := range t.Examples {
		if turn.Role != "user" && turn.Role != "model" {
			return nil, fmt.Errorf("locale %s example %d has invalid role %q", name, i, turn.Role)
		}
	}
	tmpl, err := template.New(name).Parse(t.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to parse locale %s summary prompt: %w", name, err)
	}
	t.Tag = name
	t.summary = tmpl
	return &t, nil
}

// Match returns the table best matching an Accept-Language style locale
// string such as "de-AT" or "fr, de;q=0.8"
func (c *Catalog) Match(locale string) *Table {
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return c.tables[Fallback]
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.tables[Fallback]
	}
	return c.tables[c.tags[idx].String()]
}

// Locales returns the available locale tags, fallback first
func (c *Catalog) Locales() []string {
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}
