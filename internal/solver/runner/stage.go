package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hydrocore/internal/solver/delwaq"
	"hydrocore/internal/solver/flow1d"
	"hydrocore/pkg/domain"
)

// Stage writes the flow deck into dir and, when water quality is enabled,
// the coupling file and includes into dir/wq. Returned names are relative to
// dir.
func Stage(ctx context.Context, view domain.RuleView, dir string) ([]string, error) {
	deck, err := flow1d.Export(ctx, view, dir)
	if err != nil {
		return deck, fmt.Errorf("export flow deck: %w", err)
	}
	settings := view.Settings()
	if !settings.WaterQuality.Enabled {
		return deck, nil
	}
	wqDir := filepath.Join(dir, WaterQualityDir)
	includes, err := delwaq.WriteIncludes(ctx, view, wqDir)
	for _, name := range includes {
		deck = append(deck, filepath.Join(WaterQualityDir, name))
	}
	if err != nil {
		return deck, fmt.Errorf("write water quality includes: %w", err)
	}
	if err := writeHyd(filepath.Join(wqDir, HydFile), settings, len(view.ListNodes())); err != nil {
		return deck, err
	}
	return append(deck, filepath.Join(WaterQualityDir, HydFile)), nil
}

func writeHyd(path string, s domain.Settings, segments int) error {
	h := &delwaq.Hyd{}
	h.Set(delwaq.KeyCreatedBy, "hydrocore")
	h.SetTime(delwaq.KeyReferenceTime, s.Start)
	h.SetTime(delwaq.KeyStartTime, s.Start)
	h.SetTime(delwaq.KeyStopTime, s.Stop)
	h.Set(delwaq.KeyTimeStep, delwaq.FormatStep(s.TimeStep))
	h.Set(delwaq.KeyLayers, "1")
	h.Set(delwaq.KeySegmentsPerLayer, fmt.Sprint(segments))
	files := []struct{ key, ext string }{
		{delwaq.KeyVolumesFile, ".vol"},
		{delwaq.KeyAreasFile, ".are"},
		{delwaq.KeyFlowsFile, ".flo"},
		{delwaq.KeyPointersFile, ".poi"},
		{delwaq.KeyLengthsFile, ".len"},
	}
	for _, f := range files {
		h.Set(f.key, "flow1d"+f.ext)
	}
	h.SetBlock("hydrodynamic-layers", []string{"1.0"})
	f, err := os.Create(path) //nolint:gosec // run directory owned by the runner
	if err != nil {
		return err
	}
	if err := delwaq.WriteHyd(f, h); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", HydFile, err)
	}
	return f.Close()
}

var outputExtensions = []string{".his", ".map"}

// collectOutputs lists result files below dir, relative and sorted.
func collectOutputs(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		for _, want := range outputExtensions {
			if ext == want {
				rel, relErr := filepath.Rel(dir, p)
				if relErr == nil {
					out = append(out, filepath.ToSlash(rel))
				}
			}
		}
		return nil
	})
	sort.Strings(out)
	return out
}
