package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hydrocore/testutil"
)

func TestPluginsUseCoreFacade(t *testing.T) {
	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("read plugins dir: %v", err)
	}
	checked := 0
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		testutil.AssertNoDirectImports(t, filepath.Join(".", e.Name()), testutil.DomainImportForbidden, "plugins must use the internal/core facade")
		checked++
	}
	if checked == 0 {
		t.Fatalf("no plugin packages found")
	}
}
