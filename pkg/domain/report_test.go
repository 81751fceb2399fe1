package domain

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewValidationReportGroupsByCategory(t *testing.T) {
	res := Result{Violations: []Violation{
		{Rule: "a", Category: "Network/Structures", Severity: SeverityWarning, Message: "pump levels", EntityID: "p1", Entity: EntityStructure},
		{Rule: "b", Category: "Network/Structures", Severity: SeverityError, Message: "empty composite", EntityID: "c1", Entity: EntityCompositeStructure},
		{Rule: "c", Category: "Boundary conditions", Severity: SeverityInfo, Message: "no data"},
		{Rule: "d", Severity: SeverityWarning, Message: "uncategorised"},
	}}
	report := NewValidationReport("model", res)
	if report.Category != "model" {
		t.Fatalf("unexpected root %q", report.Category)
	}
	if len(report.SubReports) != 3 {
		t.Fatalf("expected 3 top-level categories, got %d", len(report.SubReports))
	}
	// sorted alphabetically
	if report.SubReports[0].Category != "Boundary conditions" || report.SubReports[2].Category != "Network" {
		t.Fatalf("unexpected order: %+v", report.SubReports)
	}
	network := report.SubReports[2]
	if len(network.SubReports) != 1 || network.SubReports[0].Category != "Structures" {
		t.Fatalf("expected nested structures report, got %+v", network.SubReports)
	}
	structures := network.SubReports[0]
	if structures.Issues[0].Severity != SeverityError {
		t.Fatalf("errors must sort first, got %+v", structures.Issues)
	}
	if report.Severity() != SeverityError {
		t.Fatalf("expected error severity, got %s", report.Severity())
	}
	if report.ErrorCount() != 1 || report.WarningCount() != 2 {
		t.Fatalf("unexpected counts: %d errors %d warnings", report.ErrorCount(), report.WarningCount())
	}
	if len(report.AllIssues()) != 4 {
		t.Fatalf("expected all issues flattened")
	}
}

func TestValidationReportEmpty(t *testing.T) {
	report := NewValidationReport("empty", Result{})
	if report.Severity() != "" {
		t.Fatalf("expected no severity, got %q", report.Severity())
	}
	var buf bytes.Buffer
	if err := report.WriteText(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "empty (0 errors, 0 warnings)") {
		t.Fatalf("unexpected text %q", buf.String())
	}
}

func TestValidationReportWriteText(t *testing.T) {
	res := Result{Violations: []Violation{
		{Category: "Network", Severity: SeverityError, Message: "branch has no length", Entity: EntityBranch, EntityID: "b1"},
	}}
	var buf bytes.Buffer
	if err := NewValidationReport("model", res).WriteText(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"model (1 errors, 0 warnings)", "  Network (1 errors", "[error] branch b1: branch has no length"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
