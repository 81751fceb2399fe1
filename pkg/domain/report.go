package domain

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and reporting.
const (
	// SeverityError blocks transaction commit.
	SeverityError Severity = "error"
	// SeverityWarning is reported but allows commit.
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Violation reports a failed rule evaluation (a validation issue).
type Violation struct {
	Rule     string     `json:"rule"`
	Category string     `json:"category"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// Add appends a single violation.
func (r *Result) Add(v Violation) {
	r.Violations = append(r.Violations, v)
}

// HasBlocking returns true if the result contains error-severity violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of violations with the given severity.
func (r Result) Count(severity Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == severity {
			n++
		}
	}
	return n
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	n := e.Result.Count(SeverityError)
	if n == 0 {
		return "transaction blocked by rules"
	}
	first := ""
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityError {
			first = v.Message
			break
		}
	}
	return fmt.Sprintf("transaction blocked by rules: %d error(s), first: %s", n, first)
}

// ValidationReport is a tree of categorised issue lists.
type ValidationReport struct {
	Category   string             `json:"category"`
	Issues     []Violation        `json:"issues,omitempty"`
	SubReports []ValidationReport `json:"sub_reports,omitempty"`
}

// NewValidationReport groups violations by category. Categories use "/" to
// nest, e.g. "Network/Structures".
func NewValidationReport(title string, res Result) ValidationReport {
	root := ValidationReport{Category: title}
	for _, v := range res.Violations {
		path := strings.Split(strings.Trim(v.Category, "/"), "/")
		if v.Category == "" {
			path = []string{"General"}
		}
		node := &root
		for _, part := range path {
			node = node.child(part)
		}
		node.Issues = append(node.Issues, v)
	}
	root.sort()
	return root
}

func (r *ValidationReport) child(category string) *ValidationReport {
	for i := range r.SubReports {
		if r.SubReports[i].Category == category {
			return &r.SubReports[i]
		}
	}
	r.SubReports = append(r.SubReports, ValidationReport{Category: category})
	return &r.SubReports[len(r.SubReports)-1]
}

func (r *ValidationReport) sort() {
	sort.SliceStable(r.Issues, func(i, j int) bool {
		a, b := r.Issues[i], r.Issues[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() > b.Severity.rank()
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.Message < b.Message
	})
	sort.SliceStable(r.SubReports, func(i, j int) bool { return r.SubReports[i].Category < r.SubReports[j].Category })
	for i := range r.SubReports {
		r.SubReports[i].sort()
	}
}

// Severity returns the highest severity found in the tree; empty when the
// tree holds no issues.
func (r ValidationReport) Severity() Severity {
	var worst Severity
	for _, issue := range r.AllIssues() {
		if worst == "" || issue.Severity.rank() > worst.rank() {
			worst = issue.Severity
		}
	}
	return worst
}

// AllIssues flattens the tree depth first.
func (r ValidationReport) AllIssues() []Violation {
	out := append([]Violation(nil), r.Issues...)
	for _, sub := range r.SubReports {
		out = append(out, sub.AllIssues()...)
	}
	return out
}

// ErrorCount returns the number of error-severity issues in the tree.
func (r ValidationReport) ErrorCount() int {
	return Result{Violations: r.AllIssues()}.Count(SeverityError)
}

// WarningCount returns the number of warning-severity issues in the tree.
func (r ValidationReport) WarningCount() int {
	return Result{Violations: r.AllIssues()}.Count(SeverityWarning)
}

// WriteText renders the report as an indented human-readable listing.
func (r ValidationReport) WriteText(w io.Writer) error {
	return r.writeText(w, 0)
}

func (r ValidationReport) writeText(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	all := r.AllIssues()
	if _, err := fmt.Fprintf(w, "%s%s (%d errors, %d warnings)\n", indent, r.Category,
		Result{Violations: all}.Count(SeverityError), Result{Violations: all}.Count(SeverityWarning)); err != nil {
		return err
	}
	for _, issue := range r.Issues {
		subject := string(issue.Entity)
		if issue.EntityID != "" {
			subject += " " + issue.EntityID
		}
		if _, err := fmt.Fprintf(w, "%s  [%s] %s: %s\n", indent, issue.Severity, subject, issue.Message); err != nil {
			return err
		}
	}
	for _, sub := range r.SubReports {
		if err := sub.writeText(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}
