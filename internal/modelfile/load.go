// Package modelfile loads hydraulic models written in HCL. A model file
// declares variables, simulation settings and the network entities by name;
// Apply creates them in a store transaction with references resolved.
//
//	variable "crest" { default = 1.2 }
//
//	node "up" {}
//	node "down" { x = 100 }
//	branch "river" {
//	  from   = "up"
//	  to     = "down"
//	  length = 100
//	}
//	weir "w1" {
//	  branch      = "river"
//	  chainage    = 40
//	  crest_level = var.crest
//	  crest_width = 5
//	}
package modelfile

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"hydrocore/internal/ctxlog"
)

// Model is a decoded model file.
type Model struct {
	body      modelBody
	variables map[string]cty.Value
}

// Variables returns the resolved variable values by name.
func (m *Model) Variables() map[string]cty.Value {
	out := make(map[string]cty.Value, len(m.variables))
	for k, v := range m.variables {
		out[k] = v
	}
	return out
}

// Load reads and decodes the model file at path. overrides replace variable
// defaults; overriding an undeclared variable is an error.
func Load(ctx context.Context, path string, overrides map[string]cty.Value) (*Model, error) {
	src, err := os.ReadFile(path) //nolint:gosec // model path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	m, err := Parse(src, path, overrides)
	if err != nil {
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("model file decoded", "path", path,
		"nodes", len(m.body.Nodes), "branches", len(m.body.Branches), "variables", len(m.variables))
	return m, nil
}

// Parse decodes model source; filename is used in diagnostics.
func Parse(src []byte, filename string, overrides map[string]cty.Value) (*Model, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse model file %s: %w", filename, diags)
	}
	var root hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode variables in %s: %w", filename, diags)
	}
	vars, err := resolveVariables(root.Variables, overrides)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	evalCtx := &hcl.EvalContext{Variables: map[string]cty.Value{"var": cty.ObjectVal(vars)}}
	m := &Model{variables: vars}
	if diags := gohcl.DecodeBody(root.Remain, evalCtx, &m.body); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode model file %s: %w", filename, diags)
	}
	return m, nil
}

func resolveVariables(blocks []*variableBlock, overrides map[string]cty.Value) (map[string]cty.Value, error) {
	vars := make(map[string]cty.Value, len(blocks))
	for _, b := range blocks {
		if _, dup := vars[b.Name]; dup {
			return nil, fmt.Errorf("variable %q declared twice", b.Name)
		}
		vars[b.Name] = b.Default
	}
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := vars[name]; !ok {
			return nil, fmt.Errorf("override for undeclared variable %q", name)
		}
		vars[name] = overrides[name]
	}
	for _, b := range blocks {
		if vars[b.Name].IsNull() {
			return nil, fmt.Errorf("variable %q has no value", b.Name)
		}
	}
	return vars, nil
}
