package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingT struct {
	msg string
}

func (r *recordingT) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		pred func(string) bool
		in   string
		want bool
	}{
		{DomainImportForbidden, "hydrocore/pkg/domain", true},
		{DomainImportForbidden, "example.com/x/pkg/domain@v1", true},
		{DomainImportForbidden, "hydrocore/pkg/domainx", false},
		{InternalImportForbidden, "hydrocore/internal/core", true},
		{InternalImportForbidden, "hydrocore/pkg/domain", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Errorf("predicate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"hydrocore/pkg/domain\"\n)\nvar _ = fmt.Sprint\nvar _ domain.Node\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"hydrocore/internal/core\"\nvar _ core.Rule\n")
	writeFile(t, dir, "notes.txt", "import \"hydrocore/pkg/domain\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	viols, err := directImportViolations(dir, DomainImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "hydrocore/pkg/domain (in a.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
	viols, err = directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 0 {
		t.Fatalf("test files must be ignored, got %v", viols)
	}
}

func TestDirectImportViolationsErrors(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), DomainImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package tmp\nimport (")
	if _, err := directImportViolations(dir, DomainImportForbidden); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAssertNoDirectImportsPasses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	AssertNoDirectImports(t, dir, DomainImportForbidden, "none")
}

func TestFailIf(t *testing.T) {
	rec := &recordingT{}
	failIf(rec, "forbidden direct import", "reason", nil)
	if rec.msg != "" {
		t.Fatalf("no violations should not fail")
	}
	failIf(rec, "forbidden direct import", "reason", []string{"a", "b"})
	if !strings.Contains(rec.msg, "(reason)") || !strings.HasSuffix(rec.msg, "a\nb") {
		t.Fatalf("unexpected message %q", rec.msg)
	}
}

func TestAssertNoTransitiveDependency(t *testing.T) {
	AssertNoTransitiveDependency(t, ".", func(path string) bool {
		return path == "github.com/some/unused/package"
	}, "unused package")
}
