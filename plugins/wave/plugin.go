// Package wave validates online coupling between the flow and wave engines.
package wave

import (
	"context"
	"fmt"

	"hydrocore/internal/core"
)

// Category is the report category of the plugin's issues.
const Category = "Waves"

// Plugin installs the wave coupling rule.
type Plugin struct{}

// New constructs the plugin.
func New() Plugin { return Plugin{} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return "wave" }

// Version returns the plugin version.
func (Plugin) Version() string { return "1.0.0" }

// Register wires the plugin rule.
func (Plugin) Register(registry *core.PluginRegistry) error {
	registry.RegisterCategory(Category)
	registry.RegisterRule(couplingRule{})
	return nil
}

type couplingRule struct{}

func (couplingRule) Name() string { return "wave_coupling" }

func (r couplingRule) Evaluate(_ context.Context, view core.RuleView, _ []core.Change) (core.Result, error) {
	var res core.Result
	settings := view.Settings()
	w := settings.Wave
	if !w.Enabled {
		return res, nil
	}
	report := func(severity core.Severity, format string, args ...any) {
		res.Add(core.Violation{
			Rule:     r.Name(),
			Category: Category,
			Severity: severity,
			Message:  fmt.Sprintf(format, args...),
			Entity:   core.EntitySettings,
			EntityID: settings.ID,
		})
	}
	if w.CouplingInterval <= 0 {
		report(core.SeverityError, "wave coupling interval must be positive")
	}
	if w.WaveTimeStep <= 0 {
		report(core.SeverityError, "wave time step must be positive")
	}
	if w.CouplingInterval > 0 && w.WaveTimeStep > w.CouplingInterval {
		report(core.SeverityError, "wave time step %s exceeds the coupling interval %s", w.WaveTimeStep, w.CouplingInterval)
	}
	if period := settings.Duration(); w.CouplingInterval > 0 && period > 0 && period%w.CouplingInterval != 0 {
		report(core.SeverityError, "coupling interval %s does not divide the simulation period %s", w.CouplingInterval, period)
	}
	if settings.TimeStep > w.CouplingInterval && w.CouplingInterval > 0 {
		report(core.SeverityWarning, "flow time step %s is longer than the coupling interval %s", settings.TimeStep, w.CouplingInterval)
	}
	if !w.WaveToFlow && !w.FlowToWave {
		report(core.SeverityWarning, "wave coupling is enabled but exchanges no data")
	}
	return res, nil
}
