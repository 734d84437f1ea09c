// Package population holds the static state population reference table.
package population

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"sort"

	"github.com/ansel1/merry"
	"gopkg.in/yaml.v3"
)

//go:embed population.yaml
var defaultTable []byte

// Table maps state codes to population. It is immutable once loaded.
type Table struct {
	entries map[string]int64
}

// Load decodes a YAML mapping of state code to population. Every
// population must be positive.
func Load(r io.Reader) (*Table, error) {
	var m map[string]int64
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		return nil, merry.Prepend(err, "decode population table")
	}
	if len(m) == 0 {
		return nil, merry.New("population table is empty")
	}
	for state, p := range m {
		if p <= 0 {
			return nil, merry.Errorf("population of %s must be positive, got %d", state, p)
		}
	}
	return &Table{entries: m}, nil
}

// LoadFile loads the table from path, or the embedded default table when
// path is empty.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, merry.Wrap(err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded table.
func Default() (*Table, error) {
	return Load(bytes.NewReader(defaultTable))
}

// Lookup returns the population of state.
func (t *Table) Lookup(state string) (int64, bool) {
	p, ok := t.entries[state]
	return p, ok
}

// States returns the codes in the table in alphabetical order.
func (t *Table) States() []string {
	out := make([]string, 0, len(t.entries))
	for s := range t.entries {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
