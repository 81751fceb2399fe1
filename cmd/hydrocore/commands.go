package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"hydrocore/internal/blob"
	"hydrocore/internal/core"
	"hydrocore/internal/infra/events"
	"hydrocore/internal/legacy"
	"hydrocore/internal/solver/delwaq"
	"hydrocore/internal/solver/runner"
	"hydrocore/pkg/domain"
)

// Environment variables read by the run and serve commands.
const (
	EnvEngine   = "HYDROCORE_ENGINE"
	EnvWorkRoot = "HYDROCORE_WORK_ROOT"
	EnvNATSURL  = "HYDROCORE_NATS_URL"
)

func parseArgs(env *cliEnv, name string, args []string, want int, setup func(*flag.FlagSet)) (*flag.FlagSet, bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	if setup != nil {
		setup(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, false
	}
	if fs.NArg() != want {
		_, _ = fmt.Fprintf(env.stderr, "%s: %s\n", name, commands[name].summary)
		return nil, false
	}
	return fs, true
}

// reportError prints err and, for rule violations, the blocking issues.
func reportError(env *cliEnv, err error) int {
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		report := domain.NewValidationReport("Blocking issues", violation.Result)
		_ = report.WriteText(env.stderr)
	}
	_, _ = fmt.Fprintln(env.stderr, "error:", err)
	return 1
}

func runValidate(ctx context.Context, env *cliEnv, args []string) int {
	vars := varFlags{}
	fs, ok := parseArgs(env, "validate", args, 1, func(fs *flag.FlagSet) {
		fs.Var(vars, "var", "override a model variable (name=value, repeatable)")
	})
	if !ok {
		return 2
	}
	svc, _, err := loadModel(ctx, env, fs.Arg(0), vars)
	if err != nil {
		return reportError(env, err)
	}
	report, err := svc.Validate(ctx)
	if err != nil {
		return reportError(env, err)
	}
	if err := report.WriteText(env.stdout); err != nil {
		return reportError(env, err)
	}
	if report.ErrorCount() > 0 {
		return 1
	}
	return 0
}

func runExport(ctx context.Context, env *cliEnv, args []string) int {
	vars := varFlags{}
	fs, ok := parseArgs(env, "export", args, 2, func(fs *flag.FlagSet) {
		fs.Var(vars, "var", "override a model variable (name=value, repeatable)")
	})
	if !ok {
		return 2
	}
	svc, _, err := loadModel(ctx, env, fs.Arg(0), vars)
	if err != nil {
		return reportError(env, err)
	}
	dir := fs.Arg(1)
	var written []string
	err = svc.View(ctx, func(view core.TransactionView) error {
		written, err = runner.Stage(ctx, view, dir)
		return err
	})
	if err != nil {
		return reportError(env, err)
	}
	for _, name := range written {
		_, _ = fmt.Fprintln(env.stdout, name)
	}
	return 0
}

func runEngine(ctx context.Context, env *cliEnv, args []string) int {
	vars := varFlags{}
	var timeout time.Duration
	var keep bool
	fs, ok := parseArgs(env, "run", args, 1, func(fs *flag.FlagSet) {
		fs.Var(vars, "var", "override a model variable (name=value, repeatable)")
		fs.DurationVar(&timeout, "timeout", 0, "abort the engine after this long (0 = no limit)")
		fs.BoolVar(&keep, "keep", false, "keep the work directory after uploading")
	})
	if !ok {
		return 2
	}
	svc, _, err := loadModel(ctx, env, fs.Arg(0), vars)
	if err != nil {
		return reportError(env, err)
	}
	store, err := blob.Open(ctx)
	if err != nil {
		return reportError(env, err)
	}
	opts := []runner.Option{runner.WithBlobStore(store)}
	if url := os.Getenv(EnvNATSURL); url != "" {
		pub, err := events.Connect(url, "")
		if err != nil {
			return reportError(env, err)
		}
		defer func() { _ = pub.Close() }()
		opts = append(opts, runner.WithPublisher(pub))
	}
	r, err := runner.New(runner.Config{
		Executable:  os.Getenv(EnvEngine),
		WorkRoot:    os.Getenv(EnvWorkRoot),
		Timeout:     timeout,
		KeepWorkDir: keep,
	}, opts...)
	if err != nil {
		return reportError(env, err)
	}
	var run runner.Run
	err = svc.View(ctx, func(view core.TransactionView) error {
		run, err = r.Run(ctx, view)
		return err
	})
	_, _ = fmt.Fprintf(env.stdout, "run %s exit=%d artifacts=%d\n", run.ID, run.ExitCode, len(run.Artifacts))
	if err != nil {
		return reportError(env, err)
	}
	return 0
}

func runImportLegacy(ctx context.Context, env *cliEnv, args []string) int {
	fs, ok := parseArgs(env, "import-legacy", args, 1, nil)
	if !ok {
		return 2
	}
	store, err := core.OpenPersistentStore(ctx, core.NewDefaultRulesEngine())
	if err != nil {
		return reportError(env, err)
	}
	defer closeStore(ctx, store)
	svc, err := newService(store, env.logger)
	if err != nil {
		return reportError(env, err)
	}
	report, res, err := legacy.ImportFile(ctx, fs.Arg(0), svc)
	if err != nil {
		return reportError(env, err)
	}
	entities := make([]string, 0, len(report.Imported))
	for entity := range report.Imported {
		entities = append(entities, string(entity))
	}
	sort.Strings(entities)
	for _, entity := range entities {
		_, _ = fmt.Fprintf(env.stdout, "%s: %d\n", entity, report.Imported[domain.EntityType(entity)])
	}
	for _, warning := range report.Warnings {
		_, _ = fmt.Fprintln(env.stdout, "warning:", warning)
	}
	if n := res.Count(domain.SeverityWarning); n > 0 {
		_, _ = fmt.Fprintf(env.stdout, "%d validation warning(s)\n", n)
	}
	return 0
}

func runHis(_ context.Context, env *cliEnv, args []string) int {
	var substance, location string
	fs, ok := parseArgs(env, "his", args, 1, func(fs *flag.FlagSet) {
		fs.StringVar(&substance, "substance", "", "print the series of this substance")
		fs.StringVar(&location, "location", "", "location of the series (requires -substance)")
	})
	if !ok {
		return 2
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return reportError(env, err)
	}
	defer func() { _ = f.Close() }()
	h, err := delwaq.ReadHis(f)
	if err != nil {
		return reportError(env, err)
	}
	if substance == "" {
		_, _ = fmt.Fprintf(env.stdout, "%s\nreference: %s\nsubstances: %s\nlocations: %s\ntimes: %d\n",
			strings.TrimSpace(h.Title[0]), h.Reference.Format(time.RFC3339),
			strings.Join(h.Substances, ", "), strings.Join(h.Locations, ", "), len(h.Times))
		return 0
	}
	series, err := h.Series(substance, location)
	if err != nil {
		return reportError(env, err)
	}
	for _, tv := range series {
		_, _ = fmt.Fprintf(env.stdout, "%s\t%g\n", tv.Time.Format(time.RFC3339), tv.Value)
	}
	return 0
}
