// Package delwaq reads and writes the files exchanged with the water-quality
// engine: the hydrodynamic coupling (.hyd) file, the input include files and
// the binary history (.his) and map (.map) results.
package delwaq

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Well-known hyd keys.
const (
	KeyCreatedBy        = "file-created-by"
	KeyReferenceTime    = "conversion-ref-time"
	KeyStartTime        = "conversion-start-time"
	KeyStopTime         = "conversion-stop-time"
	KeyTimeStep         = "conversion-timestep"
	KeyLayers           = "number-hydrodynamic-layers"
	KeySegmentsPerLayer = "number-water-quality-segments-per-layer"
	KeyVolumesFile      = "volumes-file"
	KeyAreasFile        = "areas-file"
	KeyFlowsFile        = "flows-file"
	KeyPointersFile     = "pointers-file"
	KeyLengthsFile      = "lengths-file"

	hydTimeLayout = "20060102150405"
)

// Entry is a single "key value" line of a hyd file.
type Entry struct {
	Key   string
	Value string
}

// Block is a named multi-line section closed by "end-<name>".
type Block struct {
	Name  string
	Lines []string
}

// Hyd is an ordered hyd document.
type Hyd struct {
	Entries []Entry
	Blocks  []Block
}

// Get returns the value for key, unquoted.
func (h *Hyd) Get(key string) (string, bool) {
	for _, e := range h.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Set replaces or appends key.
func (h *Hyd) Set(key, value string) {
	for i := range h.Entries {
		if h.Entries[i].Key == key {
			h.Entries[i].Value = value
			return
		}
	}
	h.Entries = append(h.Entries, Entry{Key: key, Value: value})
}

// Block returns the lines of the named block.
func (h *Hyd) Block(name string) ([]string, bool) {
	for _, b := range h.Blocks {
		if b.Name == name {
			return b.Lines, true
		}
	}
	return nil, false
}

// SetBlock replaces or appends a block.
func (h *Hyd) SetBlock(name string, lines []string) {
	for i := range h.Blocks {
		if h.Blocks[i].Name == name {
			h.Blocks[i].Lines = lines
			return
		}
	}
	h.Blocks = append(h.Blocks, Block{Name: name, Lines: lines})
}

// Time parses a yyyymmddhhmmss value.
func (h *Hyd) Time(key string) (time.Time, error) {
	v, ok := h.Get(key)
	if !ok {
		return time.Time{}, fmt.Errorf("hyd: missing %s", key)
	}
	t, err := time.Parse(hydTimeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("hyd: %s: %w", key, err)
	}
	return t, nil
}

// SetTime stores t as yyyymmddhhmmss.
func (h *Hyd) SetTime(key string, t time.Time) {
	h.Set(key, t.UTC().Format(hydTimeLayout))
}

// TimeStep parses the conversion time step. The value uses the same 14
// digit layout as times, read as a duration; year and month fields must be zero.
func (h *Hyd) TimeStep() (time.Duration, error) {
	v, ok := h.Get(KeyTimeStep)
	if !ok {
		return 0, fmt.Errorf("hyd: missing %s", KeyTimeStep)
	}
	return ParseStep(v)
}

// Int parses an integer value.
func (h *Hyd) Int(key string) (int, error) {
	v, ok := h.Get(key)
	if !ok {
		return 0, fmt.Errorf("hyd: missing %s", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("hyd: %s: %w", key, err)
	}
	return n, nil
}

// ParseStep decodes a YYYYMMDDhhmmss duration.
func ParseStep(v string) (time.Duration, error) {
	if len(v) != 14 {
		return 0, fmt.Errorf("hyd: time step %q must have 14 digits", v)
	}
	parts := make([]int, 6)
	widths := []int{4, 2, 2, 2, 2, 2}
	pos := 0
	for i, w := range widths {
		n, err := strconv.Atoi(v[pos : pos+w])
		if err != nil {
			return 0, fmt.Errorf("hyd: time step %q: %w", v, err)
		}
		parts[i] = n
		pos += w
	}
	if parts[0] != 0 || parts[1] != 0 {
		return 0, fmt.Errorf("hyd: time step %q uses years or months", v)
	}
	return time.Duration(parts[2])*24*time.Hour +
		time.Duration(parts[3])*time.Hour +
		time.Duration(parts[4])*time.Minute +
		time.Duration(parts[5])*time.Second, nil
}

// FormatStep encodes d as YYYYMMDDhhmmss; sub-second parts are dropped.
func FormatStep(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	return fmt.Sprintf("000000%02d%02d%02d%02d", days, secs/3600, secs%3600/60, secs%60)
}

var errUnterminated = errors.New("unterminated block")

// ParseHyd reads a hyd file. Lines starting with ';' are comments.
func ParseHyd(r io.Reader) (*Hyd, error) {
	h := &Hyd{}
	sc := bufio.NewScanner(r)
	var block *Block
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if block != nil {
			if line == "end-"+block.Name {
				h.Blocks = append(h.Blocks, *block)
				block = nil
				continue
			}
			block.Lines = append(block.Lines, line)
			continue
		}
		key, value, found := strings.Cut(line, " ")
		if !found {
			if strings.HasPrefix(key, "end-") {
				return nil, fmt.Errorf("hyd line %d: %s without block", lineNo, key)
			}
			block = &Block{Name: key}
			continue
		}
		h.Entries = append(h.Entries, Entry{Key: key, Value: unquote(strings.TrimSpace(value))})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if block != nil {
		return nil, fmt.Errorf("hyd: %s: %w", block.Name, errUnterminated)
	}
	return h, nil
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		return v[1 : len(v)-1]
	}
	return v
}

// WriteHyd renders h. Values that are not plain numbers are quoted.
func WriteHyd(w io.Writer, h *Hyd) error {
	bw := bufio.NewWriter(w)
	width := 0
	for _, e := range h.Entries {
		width = max(width, len(e.Key))
	}
	for _, e := range h.Entries {
		value := e.Value
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			value = "'" + value + "'"
		}
		fmt.Fprintf(bw, "%-*s %s\n", width, e.Key, value)
	}
	for _, b := range h.Blocks {
		fmt.Fprintln(bw, b.Name)
		for _, l := range b.Lines {
			fmt.Fprintln(bw, "   "+l)
		}
		fmt.Fprintln(bw, "end-"+b.Name)
	}
	return bw.Flush()
}
