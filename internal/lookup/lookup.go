// Package lookup answers text queries for well-known dishes from a fixed
// table, skipping the remote model entirely.
package lookup

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/vbonduro/nutriscan/internal/analysis"
	"github.com/vbonduro/nutriscan/internal/domain"
)

//go:embed dishes.yaml
var defaultDishes []byte

type entry struct {
	Key    string                 `yaml:"key"`
	Record *domain.AnalysisRecord `yaml:"record"`
}

// Table is an ordered list of dish-name substrings and their records.
type Table struct {
	entries []entry
}

// Default returns the built-in table.
func Default() *Table {
	t, err := Load(bytes.NewReader(defaultDishes))
	if err != nil {
		panic(fmt.Sprintf("lookup: embedded dishes.yaml is invalid: %v", err))
	}
	return t
}

// Load reads a YAML list of {key, record} entries. Keys are lower-cased; order
// is preserved and decides ties.
func Load(r io.Reader) (*Table, error) {
	var entries []entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode lookup table: %w", err)
	}
	for i := range entries {
		entries[i].Key = strings.ToLower(strings.TrimSpace(entries[i].Key))
		if entries[i].Key == "" {
			return nil, fmt.Errorf("lookup entry %d has an empty key", i)
		}
		if entries[i].Record == nil {
			return nil, fmt.Errorf("lookup entry %q has no record", entries[i].Key)
		}
		rec, err := validate(entries[i].Record)
		if err != nil {
			return nil, fmt.Errorf("lookup entry %q: %w", entries[i].Key, err)
		}
		entries[i].Record = rec
	}
	return &Table{entries: entries}, nil
}

// validate holds table records to the same rules as model answers.
func validate(rec *domain.AnalysisRecord) (*domain.AnalysisRecord, error) {
	raw, err := json.Marshal(rec.Clone())
	if err != nil {
		return nil, err
	}
	return analysis.ParseRecord(string(raw))
}

// Lookup returns a copy of the first record whose key occurs in the trimmed,
// lower-cased text.
func (t *Table) Lookup(text string) (*domain.AnalysisRecord, bool) {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return nil, false
	}
	for _, e := range t.entries {
		if strings.Contains(clean, e.Key) {
			return e.Record.Clone(), true
		}
	}
	return nil, false
}

// Keys lists the dish keys in match order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.entries))
	for i, e := range t.entries {
		keys[i] = e.Key
	}
	return keys
}
