package core

import (
	"context"

	"hydrocore/pkg/domain"
)

// NewLeveeBreachRule checks breach growth parameters.
func NewLeveeBreachRule() domain.Rule {
	return leveeBreachRule{}
}

type leveeBreachRule struct{}

func (leveeBreachRule) Name() string { return "levee_breach" }

func (r leveeBreachRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	out := newIssues(r.Name(), CategoryBreaches)
	settings := view.Settings()
	for _, b := range view.ListBreaches() {
		if b.MinimumCrestLevel > b.InitialCrestLevel {
			out.errorf(domain.EntityLeveeBreach, b.ID, "breach %s minimum crest level %g lies above its initial crest level %g", b.Name, b.MinimumCrestLevel, b.InitialCrestLevel)
		}
		switch b.Formula {
		case domain.BreachVerheijVdKnaap2002:
			if b.InitialBreachWidth <= 0 {
				out.errorf(domain.EntityLeveeBreach, b.ID, "breach %s needs a positive initial width", b.Name)
			}
			if b.PeriodToReachZmin <= 0 {
				out.errorf(domain.EntityLeveeBreach, b.ID, "breach %s needs a positive period to reach the minimum crest level", b.Name)
			}
			if b.Factor1 <= 0 || b.Factor2 <= 0 {
				out.errorf(domain.EntityLeveeBreach, b.ID, "breach %s growth factors f1 and f2 must be positive", b.Name)
			}
			if b.CriticalFlowVelocity <= 0 {
				out.errorf(domain.EntityLeveeBreach, b.ID, "breach %s needs a positive critical flow velocity", b.Name)
			}
		case domain.BreachUserDefined:
			if len(b.UserDefined) == 0 {
				out.errorf(domain.EntityLeveeBreach, b.ID, "breach %s has an empty growth table", b.Name)
			} else if !increasingOffsets(b.UserDefined) {
				out.errorf(domain.EntityLeveeBreach, b.ID, "breach %s growth table must be ordered in time", b.Name)
			}
			for i := 1; i < len(b.UserDefined); i++ {
				if b.UserDefined[i].Width < b.UserDefined[i-1].Width {
					out.warnf(domain.EntityLeveeBreach, b.ID, "breach %s narrows in its growth table", b.Name)
					break
				}
			}
		default:
			out.errorf(domain.EntityLeveeBreach, b.ID, "breach %s has unknown growth formula %q", b.Name, b.Formula)
		}
		if !settings.Start.IsZero() && !settings.Stop.IsZero() &&
			(b.StartTime.Before(settings.Start) || b.StartTime.After(settings.Stop)) {
			out.warnf(domain.EntityLeveeBreach, b.ID, "breach %s starts outside the simulation period", b.Name)
		}
	}
	return out.result(), nil
}
