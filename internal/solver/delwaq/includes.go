package delwaq

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"hydrocore/internal/ctxlog"
	"hydrocore/pkg/domain"
)

// Include file names.
const (
	SubstancesFile   = "substances.inc"
	TimersFile       = "timers.inc"
	InitialsFile     = "initials.inc"
	BoundariesFile   = "boundaries.inc"
	OutputFile       = "outlocations.inc"
	ProcessesFile    = "processes.inc"
	timerLayout      = "2006/01/02-15:04:05"
	defaultOutputDur = time.Hour
)

// ErrDisabled is returned when includes are requested for a model without
// water quality.
var ErrDisabled = errors.New("water quality is disabled")

// WriteIncludes writes the include files for view's water-quality settings
// into dir and returns the written names. Segment numbers follow the node
// order by name, starting at 1.
func WriteIncludes(ctx context.Context, view domain.RuleView, dir string) ([]string, error) {
	settings := view.Settings()
	wq := settings.WaterQuality
	if !wq.Enabled {
		return nil, ErrDisabled
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create include dir: %w", err)
	}
	segments := segmentNumbers(view.ListNodes())
	writers := []struct {
		name  string
		write func(*bufio.Writer) error
	}{
		{SubstancesFile, func(w *bufio.Writer) error { return writeSubstances(w, wq) }},
		{TimersFile, func(w *bufio.Writer) error { return writeTimers(w, settings) }},
		{InitialsFile, func(w *bufio.Writer) error { return writeInitials(w, wq) }},
		{BoundariesFile, func(w *bufio.Writer) error { return writeBoundaries(w, view, wq) }},
		{OutputFile, func(w *bufio.Writer) error { return writeOutput(w, wq, segments) }},
		{ProcessesFile, func(w *bufio.Writer) error { return writeProcesses(w, wq) }},
	}
	var written []string
	for _, inc := range writers {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := writeFile(filepath.Join(dir, inc.name), inc.write); err != nil {
			return written, fmt.Errorf("%s: %w", inc.name, err)
		}
		written = append(written, inc.name)
	}
	ctxlog.FromContext(ctx).Debug("water quality includes written", "dir", dir,
		"substances", len(wq.Substances), "segments", len(segments))
	return written, nil
}

func writeFile(path string, fn func(*bufio.Writer) error) error {
	f, err := os.Create(path) //nolint:gosec // include directory chosen by the caller
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

type segment struct {
	number int
	name   string
}

func segmentNumbers(nodes []domain.Node) map[string]segment {
	sort.SliceStable(nodes, func(i, j int) bool { return nodeName(nodes[i]) < nodeName(nodes[j]) })
	out := make(map[string]segment, len(nodes))
	for i, n := range nodes {
		out[n.ID] = segment{number: i + 1, name: nodeName(n)}
	}
	return out
}

func nodeName(n domain.Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

func writeSubstances(w *bufio.Writer, wq domain.WaterQuality) error {
	fmt.Fprintf(w, "; substances\n%4d%4d    ; active and inactive substances\n", len(wq.Substances), 0)
	for i, s := range wq.Substances {
		fmt.Fprintf(w, "%4d  '%s'\n", i+1, s)
	}
	return nil
}

// FormatTimer renders d as dddhhmmss.
func FormatTimer(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%03d%02d%02d%02d", secs/86400, secs%86400/3600, secs%3600/60, secs%60)
}

func writeTimers(w *bufio.Writer, s domain.Settings) error {
	if s.TimeStep <= 0 {
		return fmt.Errorf("time step must be positive")
	}
	out := s.WaterQuality.OutputTimeStep
	if out <= 0 {
		out = defaultOutputDur
	}
	start, stop := s.Start.UTC().Format(timerLayout), s.Stop.UTC().Format(timerLayout)
	fmt.Fprintf(w, " %s    ; start time\n", start)
	fmt.Fprintf(w, " %s    ; stop time\n", stop)
	fmt.Fprintf(w, " 0    ; constant time step\n")
	fmt.Fprintf(w, " %s    ; time step\n", FormatTimer(s.TimeStep))
	for _, kind := range []string{"monitoring", "map", "history"} {
		fmt.Fprintf(w, " %s  %s  %s    ; %s output\n", start, stop, FormatTimer(out), kind)
	}
	return nil
}

func writeInitials(w *bufio.Writer, wq domain.WaterQuality) error {
	fmt.Fprintln(w, "INITIALS")
	for _, s := range wq.Substances {
		fmt.Fprintf(w, " '%s'", s)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "DEFAULTS")
	for _, s := range wq.Substances {
		fmt.Fprintf(w, " %g", wq.InitialValues[s])
	}
	fmt.Fprintln(w)
	return nil
}

func writeBoundaries(w *bufio.Writer, view domain.RuleView, wq domain.WaterQuality) error {
	bcs := view.ListBoundaries()
	sort.SliceStable(bcs, func(i, j int) bool { return bcs[i].Name < bcs[j].Name })
	for _, bc := range bcs {
		if len(bc.Concentrations) == 0 {
			continue
		}
		node, ok := view.FindNode(bc.NodeID)
		if !ok {
			return fmt.Errorf("boundary %s: %w: node %s", bc.Name, domain.ErrNotFound, bc.NodeID)
		}
		fmt.Fprintf(w, "ITEM '%s'\nCONCENTRATIONS", nodeName(node))
		for _, s := range wq.Substances {
			fmt.Fprintf(w, " '%s'", s)
		}
		fmt.Fprint(w, "\nDATA")
		for _, s := range wq.Substances {
			fmt.Fprintf(w, " %g", bc.Concentrations[s])
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeOutput(w *bufio.Writer, wq domain.WaterQuality, segments map[string]segment) error {
	fmt.Fprintf(w, "%4d    ; number of output locations\n", len(wq.OutputNodeIDs))
	for _, id := range wq.OutputNodeIDs {
		seg, ok := segments[id]
		if !ok {
			return fmt.Errorf("output location %s: %w", id, domain.ErrNotFound)
		}
		fmt.Fprintf(w, " '%s'  1  %d\n", seg.name, seg.number)
	}
	return nil
}

func writeProcesses(w *bufio.Writer, wq domain.WaterQuality) error {
	for _, p := range wq.Processes {
		fmt.Fprintf(w, "CONSTANTS 'ACTIVE_%s' DATA 1\n", p)
	}
	names := make([]string, 0, len(wq.Parameters))
	for name := range wq.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "CONSTANTS '%s' DATA %g\n", name, wq.Parameters[name])
	}
	return nil
}
