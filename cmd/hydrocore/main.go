// Command hydrocore validates, exports and runs 1D flow models defined in
// HCL, imports legacy model databases, inspects engine history files and
// serves the model over HTTP.
//
//	hydrocore [-log-format text|json] [-log-level info] <command> [args]
//
// Storage, blob, NATS and Neo4j backends are selected through HYDROCORE_*
// environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"hydrocore/internal/core"
	"hydrocore/internal/ctxlog"
	"hydrocore/internal/modelfile"
	"hydrocore/plugins/waterquality"
	"hydrocore/plugins/wave"
)

var exitFunc = os.Exit

type command struct {
	summary string
	run     func(ctx context.Context, env *cliEnv, args []string) int
}

var commands map[string]command

// commands is populated in init to break the initialization cycle through
// parseArgs, which reads it.
func init() {
	commands = map[string]command{
		"validate":      {"validate <model.hcl>: print the validation report", runValidate},
		"export":        {"export <model.hcl> <dir>: write the flow engine deck", runExport},
		"run":           {"run <model.hcl>: stage and run the flow engine ($HYDROCORE_ENGINE)", runEngine},
		"import-legacy": {"import-legacy <db>: migrate a legacy sqlite model into the configured store", runImportLegacy},
		"his":           {"his <file>: list or print series of a history file", runHis},
		"serve":         {"serve: expose the configured store over HTTP", runServe},
	}
}

// cliEnv carries the process wiring shared by commands.
type cliEnv struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hydrocore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	logFormat := fs.String("log-format", "text", "log output format: text or json")
	logLevel := fs.String("log-level", "info", "minimum log level: debug, info, warn or error")
	fs.Usage = func() { usage(fs, stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	logger, err := newLogger(stderr, *logFormat, *logLevel)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		usage(fs, stderr)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		usage(fs, stderr)
		return 2
	}
	ctx := ctxlog.WithLogger(context.Background(), logger)
	return cmd.run(ctx, &cliEnv{stdout: stdout, stderr: stderr, logger: logger}, rest[1:])
}

func usage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: hydrocore [flags] <command> [args]")
	fs.PrintDefaults()
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	_, _ = fmt.Fprintln(w, "commands:")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %s\n", commands[name].summary)
	}
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

// newService builds a service with the built-in rules and both plugins.
func newService(store core.PersistentStore, logger *slog.Logger, opts ...core.ServiceOption) (*core.Service, error) {
	opts = append([]core.ServiceOption{core.WithLogger(logger)}, opts...)
	var svc *core.Service
	if store == nil {
		svc = core.NewInMemoryService(nil, opts...)
	} else {
		svc = core.NewService(store, opts...)
	}
	for _, plugin := range []core.Plugin{waterquality.New(), wave.New()} {
		if _, err := svc.InstallPlugin(plugin); err != nil {
			return nil, fmt.Errorf("install %s plugin: %w", plugin.Name(), err)
		}
	}
	return svc, nil
}

// loadModel parses path and imports it into a fresh in-memory service.
func loadModel(ctx context.Context, env *cliEnv, path string, vars varFlags) (*core.Service, core.Result, error) {
	m, err := modelfile.Load(ctx, path, vars)
	if err != nil {
		return nil, core.Result{}, err
	}
	svc, err := newService(nil, env.logger)
	if err != nil {
		return nil, core.Result{}, err
	}
	res, err := modelfile.Import(ctx, svc, m)
	return svc, res, err
}

// varFlags collects repeated -var name=value overrides. Values that parse as
// numbers or booleans keep that type.
type varFlags map[string]cty.Value

func (v varFlags) String() string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func (v varFlags) Set(raw string) error {
	name, value, ok := strings.Cut(raw, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", raw)
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		v[name] = cty.NumberFloatVal(f)
		return nil
	}
	if b, err := strconv.ParseBool(value); err == nil {
		v[name] = cty.BoolVal(b)
		return nil
	}
	v[name] = cty.StringVal(value)
	return nil
}

func closeStore(ctx context.Context, store core.PersistentStore) {
	if c, ok := store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			ctxlog.FromContext(ctx).Warn("close store", "error", err)
		}
	}
}
