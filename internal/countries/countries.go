// Package countries holds the read-only table that maps MRZ country codes to
// display names. The table is loaded once at startup and never modified.
package countries

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docscan/docscan-backend/internal/mrz"
)

// Entry is one row of the country table file.
type Entry struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Table resolves country codes. Safe for concurrent use.
type Table struct {
	names map[string]string
}

var _ mrz.CountryResolver = (*Table)(nil)

// Empty returns a table without entries. Every code resolves to itself.
func Empty() *Table {
	return &Table{names: map[string]string{}}
}

// Load reads a YAML country table from path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open country table: %w", err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("country table %s: %w", path, err)
	}
	return t, nil
}

// Parse reads a YAML list of {code, name} entries. Codes are one to three
// letters; duplicates are rejected.
func Parse(r io.Reader) (*Table, error) {
	var entries []Entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return New(entries)
}

// New builds a table from entries.
func New(entries []Entry) (*Table, error) {
	names := make(map[string]string, len(entries))
	for i, e := range entries {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		if !validCode(code) {
			return nil, fmt.Errorf("entry %d: invalid code %q", i, e.Code)
		}
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("entry %d (%s): empty name", i, code)
		}
		if _, dup := names[code]; dup {
			return nil, fmt.Errorf("entry %d: duplicate code %s", i, code)
		}
		names[code] = name
	}
	return &Table{names: names}, nil
}

func validCode(code string) bool {
	if len(code) == 0 || len(code) > 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Lookup returns the display name for code.
func (t *Table) Lookup(code string) (string, bool) {
	name, ok := t.names[strings.ToUpper(code)]
	return name, ok
}

// Resolve returns the country for code, falling back to the raw code as name.
func (t *Table) Resolve(code string) mrz.Country {
	if name, ok := t.Lookup(code); ok {
		return mrz.Country{Code: code, Name: name}
	}
	return mrz.Country{Code: code, Name: code}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.names)
}

// Entries returns all entries sorted by code.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.names))
	for code, name := range t.names {
		out = append(out, Entry{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
