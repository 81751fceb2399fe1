package core

import (
	"context"
	"fmt"

	"hydrocore/pkg/domain"
)

// ReportTitle is the root category of service validation reports.
const ReportTitle = "Model"

// Validate runs the engine's rules over a complete model and groups the
// outcome into a report tree. Unlike a transaction, nothing is blocked.
func Validate(ctx context.Context, view RuleView, engine *RulesEngine) (domain.ValidationReport, error) {
	if engine == nil {
		return domain.NewValidationReport(ReportTitle, Result{}), nil
	}
	res, err := engine.Evaluate(ctx, view, nil)
	if err != nil {
		return domain.ValidationReport{}, fmt.Errorf("evaluate rules: %w", err)
	}
	return domain.NewValidationReport(ReportTitle, res), nil
}

// Validate checks the committed model with every installed rule.
func (s *Service) Validate(ctx context.Context) (domain.ValidationReport, error) {
	ctx, span := s.tracer.Start(ctx, "validate")
	start := s.clock.Now()
	var report domain.ValidationReport
	err := s.store.View(ctx, func(view TransactionView) error {
		var err error
		report, err = Validate(ctx, view, s.engine)
		return err
	})
	span.End(err)
	s.metrics.Observe(ctx, "validate", err == nil, s.clock.Now().Sub(start))
	if err != nil {
		s.logger.Error("validation failed", "error", err)
		return domain.ValidationReport{}, err
	}
	s.logger.Info("model validated", "errors", report.ErrorCount(), "warnings", report.WarningCount())
	return report, nil
}
