// Package waterquality validates the water-quality add-on: declared
// substances, boundary concentrations and output settings.
package waterquality

import (
	"context"
	"fmt"
	"sort"

	"hydrocore/internal/core"
)

// Category is the report category of the plugin's issues.
const Category = "Water quality"

// Plugin installs the water-quality rule.
type Plugin struct{}

// New constructs the plugin.
func New() Plugin { return Plugin{} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return "waterquality" }

// Version returns the plugin version.
func (Plugin) Version() string { return "1.0.0" }

// Register wires the plugin rule.
func (Plugin) Register(registry *core.PluginRegistry) error {
	registry.RegisterCategory(Category)
	registry.RegisterRule(substanceRule{})
	return nil
}

type substanceRule struct{}

func (substanceRule) Name() string { return "water_quality_substances" }

func (r substanceRule) Evaluate(_ context.Context, view core.RuleView, _ []core.Change) (core.Result, error) {
	var res core.Result
	add := func(severity core.Severity, entity core.EntityType, id, format string, args ...any) {
		res.Add(core.Violation{
			Rule:     r.Name(),
			Category: Category,
			Severity: severity,
			Message:  fmt.Sprintf(format, args...),
			Entity:   entity,
			EntityID: id,
		})
	}

	settings := view.Settings()
	wq := settings.WaterQuality
	boundaries := view.ListBoundaries()
	if !wq.Enabled {
		for _, bc := range boundaries {
			if len(bc.Concentrations) > 0 {
				add(core.SeverityWarning, core.EntityBoundary, bc.ID, "boundary condition %s has concentrations but water quality is disabled", bc.Name)
			}
		}
		return res, nil
	}

	declared := make(map[string]bool, len(wq.Substances))
	if len(wq.Substances) == 0 {
		add(core.SeverityError, core.EntitySettings, settings.ID, "water quality is enabled without substances")
	}
	for _, name := range wq.Substances {
		if declared[name] {
			add(core.SeverityError, core.EntitySettings, settings.ID, "substance %s is declared twice", name)
		}
		declared[name] = true
	}
	if wq.OutputTimeStep <= 0 {
		add(core.SeverityError, core.EntitySettings, settings.ID, "water quality output time step must be positive")
	} else if settings.TimeStep > 0 && wq.OutputTimeStep%settings.TimeStep != 0 {
		add(core.SeverityWarning, core.EntitySettings, settings.ID, "water quality output time step %s is not a multiple of the flow time step %s", wq.OutputTimeStep, settings.TimeStep)
	}
	for _, name := range sortedKeys(wq.InitialValues) {
		if !declared[name] {
			add(core.SeverityWarning, core.EntitySettings, settings.ID, "initial value given for undeclared substance %s", name)
		}
	}
	for _, id := range wq.OutputNodeIDs {
		if _, ok := view.FindNode(id); !ok {
			add(core.SeverityError, core.EntitySettings, settings.ID, "water quality output location %s does not exist", id)
		}
	}
	for _, bc := range boundaries {
		for _, name := range sortedKeys(bc.Concentrations) {
			switch {
			case !declared[name]:
				add(core.SeverityError, core.EntityBoundary, bc.ID, "boundary condition %s sets undeclared substance %s", bc.Name, name)
			case bc.Concentrations[name] < 0:
				add(core.SeverityError, core.EntityBoundary, bc.ID, "boundary condition %s has a negative %s concentration", bc.Name, name)
			}
		}
	}
	return res, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
