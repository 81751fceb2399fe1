// Package ini reads and writes the sectioned key/value decks consumed by the
// 1D flow and water-quality engines. Unlike common INI dialects, section
// names and keys may repeat, order is preserved and a section may end with
// raw data rows (lines without '='), as used by .bc forcing files.
package ini

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Property is one key/value line.
type Property struct {
	Key     string
	Value   string
	Comment string
}

// Section is a bracketed block.
type Section struct {
	Name       string
	Properties []Property
	// Data holds whitespace-separated rows that follow the properties.
	Data [][]string
}

// Document is an ordered list of sections.
type Document struct {
	Sections []*Section
}

// AddSection appends a new section.
func (d *Document) AddSection(name string) *Section {
	s := &Section{Name: name}
	d.Sections = append(d.Sections, s)
	return s
}

// Find returns all sections with name, case-insensitively, in file order.
func (d *Document) Find(name string) []*Section {
	var out []*Section
	for _, s := range d.Sections {
		if strings.EqualFold(s.Name, name) {
			out = append(out, s)
		}
	}
	return out
}

// First returns the first section called name.
func (d *Document) First(name string) (*Section, bool) {
	found := d.Find(name)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}

// Add appends a property; existing keys are kept.
func (s *Section) Add(key, value string) *Section {
	s.Properties = append(s.Properties, Property{Key: key, Value: value})
	return s
}

// AddComment appends a property carrying a trailing comment.
func (s *Section) AddComment(key, value, comment string) *Section {
	s.Properties = append(s.Properties, Property{Key: key, Value: value, Comment: comment})
	return s
}

// AddFloat appends a float property.
func (s *Section) AddFloat(key string, v float64) *Section {
	return s.Add(key, FormatFloat(v))
}

// AddInt appends an integer property.
func (s *Section) AddInt(key string, v int) *Section {
	return s.Add(key, strconv.Itoa(v))
}

// AddBool appends 1 or 0.
func (s *Section) AddBool(key string, v bool) *Section {
	if v {
		return s.Add(key, "1")
	}
	return s.Add(key, "0")
}

// AddFloats appends a space-separated list.
func (s *Section) AddFloats(key string, values []float64) *Section {
	return s.Add(key, FormatFloats(values))
}

// AddRow appends a data row.
func (s *Section) AddRow(values ...float64) *Section {
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = FormatFloat(v)
	}
	s.Data = append(s.Data, row)
	return s
}

// Set replaces the first property named key, or appends it.
func (s *Section) Set(key, value string) {
	for i := range s.Properties {
		if strings.EqualFold(s.Properties[i].Key, key) {
			s.Properties[i].Value = value
			return
		}
	}
	s.Add(key, value)
}

// Get returns the first value for key.
func (s *Section) Get(key string) (string, bool) {
	for _, p := range s.Properties {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}

// Value returns the first value for key or "".
func (s *Section) Value(key string) string {
	v, _ := s.Get(key)
	return v
}

// All returns every value recorded for key.
func (s *Section) All(key string) []string {
	var out []string
	for _, p := range s.Properties {
		if strings.EqualFold(p.Key, key) {
			out = append(out, p.Value)
		}
	}
	return out
}

// Float parses the first value for key.
func (s *Section) Float(key string) (float64, error) {
	v, ok := s.Get(key)
	if !ok {
		return 0, fmt.Errorf("[%s] missing %s", s.Name, key)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: %w", s.Name, key, err)
	}
	return f, nil
}

// FloatOr parses key, returning def when the key is absent.
func (s *Section) FloatOr(key string, def float64) (float64, error) {
	if _, ok := s.Get(key); !ok {
		return def, nil
	}
	return s.Float(key)
}

// Int parses the first value for key.
func (s *Section) Int(key string) (int, error) {
	v, ok := s.Get(key)
	if !ok {
		return 0, fmt.Errorf("[%s] missing %s", s.Name, key)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("[%s] %s: %w", s.Name, key, err)
	}
	return n, nil
}

// Bool treats 1/true/yes as true; a missing key is false.
func (s *Section) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(s.Value(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Floats parses a whitespace-separated list.
func (s *Section) Floats(key string) ([]float64, error) {
	v, ok := s.Get(key)
	if !ok {
		return nil, nil
	}
	fields := strings.Fields(v)
	out := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("[%s] %s item %d: %w", s.Name, key, i+1, err)
		}
		out[i] = x
	}
	return out, nil
}

// FormatFloat renders v in the shortest form that round-trips.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatFloats renders a space-separated list.
func FormatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = FormatFloat(v)
	}
	return strings.Join(parts, " ")
}

// Parse reads a document. Lines starting with '#' or ';' are comments; a
// trailing " #" starts an inline comment.
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{}
	var cur *Section
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if line[0] == '[' {
			end := strings.IndexByte(line, ']')
			if end < 0 {
				return nil, fmt.Errorf("line %d: unterminated section header", lineNo)
			}
			cur = doc.AddSection(strings.TrimSpace(line[1:end]))
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: content outside a section", lineNo)
		}
		key, rest, ok := strings.Cut(line, "=")
		if !ok {
			cur.Data = append(cur.Data, strings.Fields(line))
			continue
		}
		if len(cur.Data) > 0 {
			return nil, fmt.Errorf("line %d: property %q after data rows in [%s]", lineNo, strings.TrimSpace(key), cur.Name)
		}
		value, comment := splitComment(rest)
		cur.Properties = append(cur.Properties, Property{Key: strings.TrimSpace(key), Value: value, Comment: comment})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func splitComment(rest string) (string, string) {
	if i := strings.Index(rest, " #"); i >= 0 {
		return strings.TrimSpace(rest[:i]), strings.TrimSpace(rest[i+2:])
	}
	return strings.TrimSpace(rest), ""
}

// WriteTo renders the document with keys aligned per section.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	write := func(s string) {
		m, _ := bw.WriteString(s)
		n += int64(m)
	}
	for i, s := range d.Sections {
		if i > 0 {
			write("\n")
		}
		write("[" + s.Name + "]\n")
		width := 0
		for _, p := range s.Properties {
			width = max(width, len(p.Key))
		}
		for _, p := range s.Properties {
			line := p.Key + strings.Repeat(" ", width-len(p.Key)) + " = " + p.Value
			if p.Comment != "" {
				line += "    # " + p.Comment
			}
			write(line + "\n")
		}
		for _, row := range s.Data {
			write(strings.Join(row, "  ") + "\n")
		}
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// String renders the document.
func (d *Document) String() string {
	var b strings.Builder
	_, _ = d.WriteTo(&b)
	return b.String()
}
