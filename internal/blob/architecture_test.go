package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// Backends are reached through this package only.
func TestOnlyBlobPackageImportsBackends(t *testing.T) {
	const backends = "hydrocore/internal/infra/blob"
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "hydrocore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var viols []string
	for _, pkg := range pkgs {
		if strings.HasPrefix(pkg.PkgPath, "hydrocore/internal/blob") || strings.HasPrefix(pkg.PkgPath, backends) {
			continue
		}
		for imp := range pkg.Imports {
			if imp == backends || strings.HasPrefix(imp, backends+"/") {
				viols = append(viols, pkg.PkgPath+" -> "+imp)
			}
		}
	}
	sort.Strings(viols)
	if len(viols) > 0 {
		t.Fatalf("blob backends imported outside internal/blob:\n%s", strings.Join(viols, "\n"))
	}
}
