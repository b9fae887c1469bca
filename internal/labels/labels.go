// Package labels maps class indices to human-readable food names.
package labels

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultClassCount is the number of placeholder classes generated when no
// label source is available.
const DefaultClassCount = 101

// Table is a read-only index -> name mapping.
type Table struct {
	names map[int]string
}

// New builds a table from a list of names ordered by class index.
func New(names []string) *Table {
	m := make(map[int]string, len(names))
	for i, name := range names {
		m[i] = name
	}
	return &Table{names: m}
}

// Placeholder builds a table of "class_<i>" names for n classes.
func Placeholder(n int) *Table {
	names := make([]string, n)
	for i := range names {
		names[i] = "class_" + strconv.Itoa(i)
	}
	return New(names)
}

// Parse reads a JSON object keyed by stringified class index.
func Parse(data []byte) (*Table, error) {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}

	t := &Table{names: make(map[int]string, len(raw))}
	for key, name := range raw {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid label index %q", key)
		}
		if _, dup := t.names[idx]; dup {
			return nil, fmt.Errorf("duplicate label index %d (key %q)", idx, key)
		}
		t.names[idx] = name
	}
	return t, nil
}

// Load reads a label file. The second return value is false when the file
// does not exist, in which case the table is nil and err is nil.
func Load(path string) (*Table, bool, error) {
	if path == "" {
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read labels: %w", err)
	}

	t, err := Parse(data)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// Resolve picks the first usable label source: the label file, then the
// class list from model metadata, then placeholders.
func Resolve(path string, classes []string) (*Table, string, error) {
	t, ok, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	if ok {
		return t, "file", nil
	}
	if len(classes) > 0 {
		return New(classes), "metadata", nil
	}
	return Placeholder(DefaultClassCount), "placeholder", nil
}

// Len returns the number of known classes.
func (t *Table) Len() int {
	return len(t.names)
}

// Name returns the raw label for idx, or idx itself when unknown.
func (t *Table) Name(idx int) string {
	if name, ok := t.names[idx]; ok {
		return name
	}
	return strconv.Itoa(idx)
}

// Display returns the label formatted for presentation: "apple_pie" -> "Apple Pie".
func (t *Table) Display(idx int) string {
	// Casers carry state and cannot be shared across goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(t.Name(idx), "_", " "))
}
