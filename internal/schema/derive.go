package schema

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// SampleRows is the number of records inspected for type inference.
const SampleRows = 100

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Derive infers property definitions from a data file. The format comes
// from the extension: .csv and .tsv (header row plus delimited records),
// .json (an array of records), .jsonl and .ndjson (one record per line).
func Derive(path string) ([]Property, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &types.FileNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	if head, err := r.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = r.Discard(len(utf8BOM))
	}

	var props []Property
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		props, err = deriveDelimited(r, ',')
	case ".tsv", ".tab":
		props, err = deriveDelimited(r, '\t')
	case ".json":
		props, err = deriveJSONArray(r)
	case ".jsonl", ".ndjson":
		props, err = deriveJSONLines(r)
	default:
		return nil, fmt.Errorf("%w: cannot derive a schema from %q files", types.ErrInvalidValue, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("deriving schema from %s: %w", path, err)
	}
	if len(props) == 0 {
		return nil, fmt.Errorf("%w: %s has no columns", types.ErrInvalidValue, path)
	}
	return props, nil
}

func deriveDelimited(r io.Reader, comma rune) ([]Property, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", types.ErrInvalidValue, err)
	}
	names := columnNames(header)
	inferred := make([]typeSet, len(names))

	for row := 0; row < SampleRows; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", types.ErrInvalidValue, row+2, err)
		}
		for i := range names {
			if i < len(record) {
				inferred[i].addText(record[i])
			}
		}
	}

	props := make([]Property, len(names))
	for i, name := range names {
		props[i] = property(name, i, inferred[i].result())
	}
	return props, nil
}

// columnNames fills blank header cells with column_<n> and suffixes
// repeated names with _2, _3 and so on, skipping suffixes already taken.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		base := strings.TrimSpace(h)
		if base == "" {
			base = fmt.Sprintf("column_%d", i+1)
		}
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func deriveJSONArray(r io.Reader) ([]Property, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidValue, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of records", types.ErrInvalidValue)
	}

	acc := newRecordTypes()
	for n := 0; n < SampleRows && dec.More(); n++ {
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", types.ErrInvalidValue, n+1, err)
		}
		acc.add(record)
	}
	return acc.properties(), nil
}

func deriveJSONLines(r io.Reader) ([]Property, error) {
	acc := newRecordTypes()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for line, n := 0, 0; n < SampleRows && scanner.Scan(); line++ {
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrInvalidValue, line+1, err)
		}
		acc.add(record)
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return acc.properties(), nil
}

// recordTypes accumulates inferred types per key across JSON records.
type recordTypes struct {
	byKey map[string]*typeSet
}

func newRecordTypes() *recordTypes {
	return &recordTypes{byKey: map[string]*typeSet{}}
}

func (a *recordTypes) add(record map[string]any) {
	for k, v := range record {
		ts, ok := a.byKey[k]
		if !ok {
			ts = &typeSet{}
			a.byKey[k] = ts
		}
		ts.addValue(v)
	}
}

// properties returns the keys in sorted order; JSON objects carry no
// column order.
func (a *recordTypes) properties() []Property {
	keys := make([]string, 0, len(a.byKey))
	for k := range a.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	props := make([]Property, len(keys))
	for i, k := range keys {
		props[i] = property(k, i, a.byKey[k].result())
	}
	return props
}

func property(name string, index int, valueType string) Property {
	idx := index
	return Property{
		Name: name,
		PropertyDefinition: types.PropertyDefinition{
			Type:  valueType,
			Index: &idx,
		},
	}
}

// typeSet records which value types a column has held.
type typeSet struct {
	integer, number, boolean, text, array, object bool
}

func (s *typeSet) addText(v string) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
	case isInteger(v):
		s.integer = true
	case isNumber(v):
		s.number = true
	case isBoolean(v):
		s.boolean = true
	default:
		s.text = true
	}
}

func (s *typeSet) addValue(v any) {
	switch t := v.(type) {
	case nil:
	case json.Number:
		if isInteger(t.String()) {
			s.integer = true
		} else {
			s.number = true
		}
	case bool:
		s.boolean = true
	case string:
		s.text = true
	case []any:
		s.array = true
	case map[string]any:
		s.object = true
	default:
		s.text = true
	}
}

// result collapses the observed types: integers widen to number, anything
// else mixed becomes string, and a column with no values is string.
func (s *typeSet) result() string {
	count := 0
	for _, seen := range []bool{s.integer || s.number, s.boolean, s.text, s.array, s.object} {
		if seen {
			count++
		}
	}
	switch {
	case count != 1:
		return types.ValueTypeString
	case s.number:
		return types.ValueTypeNumber
	case s.integer:
		return types.ValueTypeInteger
	case s.boolean:
		return types.ValueTypeBoolean
	case s.array:
		return types.ValueTypeArray
	case s.object:
		return types.ValueTypeObject
	}
	return types.ValueTypeString
}

func isInteger(v string) bool {
	_, err := strconv.ParseInt(v, 10, 64)
	return err == nil
}

func isNumber(v string) bool {
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return false
	}
	// ParseFloat accepts "NaN" and "Inf"; those are text in a data file.
	lower := strings.ToLower(v)
	return !strings.Contains(lower, "nan") && !strings.Contains(lower, "inf")
}

func isBoolean(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false":
		return true
	}
	return false
}
