package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scrubflow/internal/config"
	"scrubflow/internal/diff"
	"scrubflow/internal/report"
	"scrubflow/internal/rules"
	"scrubflow/internal/sanitize"
	"scrubflow/internal/watch"
	"scrubflow/internal/workflow"
)

// runner applies one pipeline to a set of input files.
type runner struct {
	cfg     *config.Config
	engine  *sanitize.Engine
	logger  *zap.Logger
	printer *report.Printer
	flags   *runFlags
}

func newRunner(cfg *config.Config, policy *rules.Policy, logger *zap.Logger, out io.Writer, f *runFlags) *runner {
	logger = logger.With(
		zap.String("run_id", uuid.New().String()[:8]),
		zap.String("mode", string(policy.Mode)),
	)
	return &runner{
		cfg:     cfg,
		engine:  sanitize.New(policy, sanitize.WithLogger(logger)),
		logger:  logger,
		printer: report.NewPrinter(out, f.noColor),
		flags:   f,
	}
}

// OutputPath derives the default output for input by inserting suffix
// before its extension. A leading dot does not start an extension.
func OutputPath(input, suffix string) string {
	ext := filepath.Ext(input)
	if ext == filepath.Base(input) {
		ext = ""
	}
	return strings.TrimSuffix(input, ext) + suffix + ext
}

func (r *runner) outputFor(input string) string {
	if r.flags.output != "" {
		return r.flags.output
	}
	return OutputPath(input, r.cfg.OutputSuffix)
}

// all processes every input with bounded concurrency. The first failure
// cancels the remaining files.
func (r *runner) all(ctx context.Context, inputs []string) error {
	if !r.flags.check {
		if err := r.checkOutputs(inputs); err != nil {
			return err
		}
	}

	var pending atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			changed, err := r.file(ctx, input)
			if err != nil {
				return err
			}
			if changed {
				pending.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if r.flags.check && pending.Load() > 0 {
		return &PendingChangesError{Count: int(pending.Load())}
	}
	return nil
}

// checkOutputs rejects runs where one file would be written twice or an
// output would replace another input before it is read.
func (r *runner) checkOutputs(inputs []string) error {
	byInput := make(map[string]string, len(inputs))
	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", input, err)
		}
		if prev, ok := byInput[abs]; ok {
			return fmt.Errorf("%s and %s are the same input", prev, input)
		}
		byInput[abs] = input
	}

	claimed := make(map[string]string, len(inputs))
	for _, input := range inputs {
		output := r.outputFor(input)
		abs, err := filepath.Abs(output)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", output, err)
		}
		if other, ok := byInput[abs]; ok && !sameFile(other, input) {
			return fmt.Errorf("output for %s would overwrite input %s", input, other)
		}
		if prev, ok := claimed[abs]; ok {
			return fmt.Errorf("%s and %s would both be written to %s", prev, input, output)
		}
		claimed[abs] = input
	}
	return nil
}

// file sanitizes one input. It reports whether the document changed.
func (r *runner) file(ctx context.Context, input string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.printer.Processing(input)
	doc, err := workflow.Load(input)
	if err != nil {
		return false, err
	}

	var before string
	if r.flags.diff {
		if before, err = r.encode(doc); err != nil {
			return false, err
		}
	}

	doc, rep := r.engine.Sanitize(doc)
	if r.flags.verbose || r.flags.check {
		r.printer.Changes(input, rep)
	}
	if r.flags.diff && rep.Changed() {
		after, err := r.encode(doc)
		if err != nil {
			return false, err
		}
		r.printer.Diff(diff.Unified(input, r.outputFor(input), before, after))
	}

	if r.flags.check {
		if rep.Changed() {
			r.printer.WouldChange(input, len(rep.Changes))
		} else {
			r.printer.Clean(input)
		}
		return rep.Changed(), nil
	}

	output := r.outputFor(input)
	if err := workflow.Save(output, doc, r.cfg.Indent); err != nil {
		return false, err
	}
	r.printer.Saved(output)
	r.logger.Info("Sanitized workflow",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("changes", len(rep.Changes)))
	return rep.Changed(), nil
}

// watch runs every input once, then again each time one is written, until
// ctx is cancelled.
func (r *runner) watch(ctx context.Context, inputs []string) error {
	for _, input := range inputs {
		if sameFile(input, r.outputFor(input)) {
			return fmt.Errorf("output for %s is the input itself; watching would loop", input)
		}
	}

	w, err := watch.New(inputs, func(ctx context.Context, path string) error {
		_, err := r.file(ctx, path)
		return err
	}, watch.WithLogger(r.logger))
	if err != nil {
		return err
	}

	for _, input := range inputs {
		if _, err := r.file(ctx, input); err != nil {
			r.logger.Error("Initial run failed", zap.String("input", input), zap.Error(err))
		}
	}

	r.logger.Info("Watching for changes", zap.Strings("inputs", inputs))
	return w.Run(ctx)
}

func (r *runner) encode(doc *workflow.Document) (string, error) {
	var buf bytes.Buffer
	if err := doc.Encode(&buf, r.cfg.Indent); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
