package delwaq

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"hydrocore/pkg/domain"
)

const (
	titleWidth   = 40
	nameWidth    = 20
	t0Layout     = "2006.01.02 15:04:05"
	t0Prefix     = "T0: "
	defaultUnit  = time.Second
	maxNameCount = 1 << 20
	// maxRecordValues bounds locations*substances for one time record.
	maxRecordValues = 1 << 24
	recordChunk     = 1 << 14
)

var order = binary.LittleEndian

// ErrTruncated is wrapped when a result file ends inside a header or record.
var ErrTruncated = errors.New("truncated result file")

// Output is the content shared by history and map files. Records[i] holds
// one value per (location, substance) pair, location-major, at Times[i].
type Output struct {
	Title      [3]string
	Reference  time.Time
	Unit       time.Duration
	Substances []string
	Times      []time.Time
	Records    [][]float32
}

// History is a .his file: results at named monitoring locations.
type History struct {
	Output
	Locations []string
}

// Map is a .map file: results for every segment.
type Map struct {
	Output
	Segments int
}

func (o *Output) substanceIndex(name string) (int, error) {
	for i, s := range o.Substances {
		if strings.EqualFold(s, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("substance %q: %w", name, domain.ErrNotFound)
}

func (o *Output) series(loc, sub, width int) []domain.TimeValue {
	out := make([]domain.TimeValue, len(o.Times))
	for i, t := range o.Times {
		out[i] = domain.TimeValue{Time: t, Value: float64(o.Records[i][loc*width+sub])}
	}
	return out
}

// Series returns the time series of substance at location.
func (h *History) Series(substance, location string) ([]domain.TimeValue, error) {
	sub, err := h.substanceIndex(substance)
	if err != nil {
		return nil, err
	}
	for i, l := range h.Locations {
		if l == location {
			return h.series(i, sub, len(h.Substances)), nil
		}
	}
	return nil, fmt.Errorf("location %q: %w", location, domain.ErrNotFound)
}

// Series returns the time series of substance in the 1-based segment.
func (m *Map) Series(substance string, segment int) ([]domain.TimeValue, error) {
	sub, err := m.substanceIndex(substance)
	if err != nil {
		return nil, err
	}
	if segment < 1 || segment > m.Segments {
		return nil, fmt.Errorf("segment %d outside 1..%d", segment, m.Segments)
	}
	return m.series(segment-1, sub, len(m.Substances)), nil
}

// ReadHis decodes a history file.
func ReadHis(r io.Reader) (*History, error) {
	br := bufio.NewReader(r)
	h := &History{}
	n, err := readHeader(br, &h.Output)
	if err != nil {
		return nil, err
	}
	h.Locations = make([]string, n)
	for i := range h.Locations {
		var id int32
		if err := read(br, &id); err != nil {
			return nil, err
		}
		if h.Locations[i], err = readName(br, nameWidth); err != nil {
			return nil, err
		}
	}
	if err := readRecords(br, &h.Output, n); err != nil {
		return nil, err
	}
	return h, nil
}

// WriteHis encodes h.
func WriteHis(w io.Writer, h *History) error {
	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, &h.Output, len(h.Locations)); err != nil {
		return err
	}
	for i, name := range h.Locations {
		if err := write(bw, int32(i+1)); err != nil {
			return err
		}
		if err := writeName(bw, name, nameWidth); err != nil {
			return err
		}
	}
	if err := writeRecords(bw, &h.Output, len(h.Locations)); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadMap decodes a map file.
func ReadMap(r io.Reader) (*Map, error) {
	br := bufio.NewReader(r)
	m := &Map{}
	n, err := readHeader(br, &m.Output)
	if err != nil {
		return nil, err
	}
	m.Segments = n
	if err := readRecords(br, &m.Output, n); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteMap encodes m.
func WriteMap(w io.Writer, m *Map) error {
	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, &m.Output, m.Segments); err != nil {
		return err
	}
	if err := writeRecords(bw, &m.Output, m.Segments); err != nil {
		return err
	}
	return bw.Flush()
}

// readHeader reads title, counts and substance names and returns the
// location (or segment) count.
func readHeader(r io.Reader, o *Output) (int, error) {
	var lines [4]string
	for i := range lines {
		line, err := readName(r, titleWidth)
		if err != nil {
			return 0, err
		}
		lines[i] = line
	}
	copy(o.Title[:], lines[:3])
	ref, unit, err := parseT0(lines[3])
	if err != nil {
		return 0, err
	}
	o.Reference, o.Unit = ref, unit
	var counts [2]int32
	if err := read(r, &counts); err != nil {
		return 0, err
	}
	if counts[0] < 0 || counts[1] < 0 || counts[0] > maxNameCount || counts[1] > maxNameCount {
		return 0, fmt.Errorf("implausible header counts %d substances, %d locations", counts[0], counts[1])
	}
	o.Substances = make([]string, counts[0])
	for i := range o.Substances {
		if o.Substances[i], err = readName(r, nameWidth); err != nil {
			return 0, err
		}
	}
	return int(counts[1]), nil
}

func writeHeader(w io.Writer, o *Output, locations int) error {
	unit := o.Unit
	if unit <= 0 {
		unit = defaultUnit
	}
	for _, line := range o.Title {
		if err := writeName(w, line, titleWidth); err != nil {
			return err
		}
	}
	t0 := fmt.Sprintf("%s%s  (scu=%8ds)", t0Prefix, o.Reference.UTC().Format(t0Layout), int64(unit/time.Second))
	if err := writeName(w, t0, titleWidth); err != nil {
		return err
	}
	if err := write(w, [2]int32{int32(len(o.Substances)), int32(locations)}); err != nil {
		return err
	}
	for _, s := range o.Substances {
		if err := writeName(w, s, nameWidth); err != nil {
			return err
		}
	}
	return nil
}

func parseT0(line string) (time.Time, time.Duration, error) {
	rest, ok := strings.CutPrefix(line, t0Prefix)
	if !ok || len(rest) < len(t0Layout) {
		return time.Time{}, 0, fmt.Errorf("title line %q has no reference time", line)
	}
	ref, err := time.Parse(t0Layout, rest[:len(t0Layout)])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("reference time: %w", err)
	}
	unit := defaultUnit
	if _, scu, found := strings.Cut(rest, "(scu="); found {
		var secs int64
		if _, err := fmt.Sscanf(strings.TrimSpace(scu), "%ds)", &secs); err != nil || secs <= 0 {
			return time.Time{}, 0, fmt.Errorf("time unit in %q", line)
		}
		unit = time.Duration(secs) * time.Second
	}
	return ref, unit, nil
}

func readRecords(r io.Reader, o *Output, locations int) error {
	width := locations * len(o.Substances)
	if width > maxRecordValues {
		return fmt.Errorf("record width %d (%d locations x %d substances) exceeds %d values", width, locations, len(o.Substances), maxRecordValues)
	}
	chunk := make([]float32, min(width, recordChunk))
	for {
		var offset int32
		err := binary.Read(r, order, &offset)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", len(o.Times)+1, truncated(err))
		}
		// grow with the data actually read so a lying header cannot force
		// a large allocation
		values := make([]float32, 0, min(width, recordChunk))
		for len(values) < width {
			n := min(width-len(values), len(chunk))
			if err := binary.Read(r, order, chunk[:n]); err != nil {
				return fmt.Errorf("record %d: %w", len(o.Times)+1, truncated(err))
			}
			values = append(values, chunk[:n]...)
		}
		o.Times = append(o.Times, o.Reference.Add(time.Duration(offset)*o.Unit))
		o.Records = append(o.Records, values)
	}
}

func writeRecords(w io.Writer, o *Output, locations int) error {
	unit := o.Unit
	if unit <= 0 {
		unit = defaultUnit
	}
	width := locations * len(o.Substances)
	if len(o.Records) != len(o.Times) {
		return fmt.Errorf("%d records for %d times", len(o.Records), len(o.Times))
	}
	for i, t := range o.Times {
		if len(o.Records[i]) != width {
			return fmt.Errorf("record %d holds %d values, expected %d", i+1, len(o.Records[i]), width)
		}
		if err := write(w, int32(t.Sub(o.Reference)/unit)); err != nil {
			return err
		}
		if err := write(w, o.Records[i]); err != nil {
			return err
		}
	}
	return nil
}

func read(r io.Reader, v any) error {
	return truncated(binary.Read(r, order, v))
}

func write(w io.Writer, v any) error {
	return binary.Write(w, order, v)
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

func readName(r io.Reader, width int) (string, error) {
	buf := make([]byte, width)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", truncated(err)
	}
	return strings.TrimRight(string(buf), " \x00"), nil
}

func writeName(w io.Writer, name string, width int) error {
	if len(name) > width {
		return fmt.Errorf("name %q exceeds %d characters", name, width)
	}
	_, err := io.WriteString(w, name+strings.Repeat(" ", width-len(name)))
	return err
}
