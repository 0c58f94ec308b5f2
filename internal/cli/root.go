// Package cli wires the scrubflow command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scrubflow/internal/config"
	"scrubflow/internal/logging"
	"scrubflow/internal/rules"
)

// app carries state shared between the root and its subcommands.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger
}

// runFlags are the flags every pipeline subcommand accepts.
type runFlags struct {
	output  string
	verbose bool
	check   bool
	watch   bool
	diff    bool
	noColor bool
}

// NewRootCommand builds the scrubflow command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "scrubflow",
		Short: "Strip private paths and prompt text from node-graph workflows",
		Long: `scrubflow rewrites exported node-graph workflow documents so they can be
shared publicly.

  paths    replace known loader fields with placeholders and reduce every
           other path-like string to its base name
  prompts  reset loader fields and clear the prompt text that feeds
           each prompt generator

The input is never modified. By default the result is written next to it
with "_template" inserted before the extension.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console or json")

	root.AddCommand(
		newInitCommand(a),
		newPipelineCommand(a, rules.ModePaths,
			"Replace loader paths with placeholders and flatten the rest",
			`Rewrites node parameters for public sharing:
  - known loader nodes get fixed placeholder values
  - nodes matching a skip rule (CLIPTextEncode by default) are left alone
  - every other string that looks like a path is cut to its base name`),
		newPipelineCommand(a, rules.ModePrompts,
			"Reset loader fields and clear prompt text feeding generators",
			`Rewrites node parameters for public sharing:
  - known loader nodes get a placeholder in their first parameter
  - starting from every prompt generator, the "prompt" input is followed
    upstream through pass-through nodes and the first text parameter of
    each text source found is emptied`),
	)

	return root
}

func newPipelineCommand(a *app, mode rules.Mode, short, long string) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   string(mode) + " <input.json>...",
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, mode, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output path (single input only)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print every change and enable debug logs")
	cmd.Flags().BoolVar(&f.check, "check", false, "Report changes without writing; fail if any document would change")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Re-sanitize inputs whenever they are written")
	cmd.Flags().BoolVar(&f.diff, "diff", false, "Print a unified diff of each document")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "Disable colored output")

	return cmd
}

// setup loads the config and builds the logger. Flags win over the file.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Logging.Validate(); err != nil {
		return err
	}

	verbose := false
	if fl := cmd.Flags().Lookup("verbose"); fl != nil {
		verbose = fl.Value.String() == "true"
	}

	logger, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) run(cmd *cobra.Command, mode rules.Mode, f *runFlags, inputs []string) error {
	if f.output != "" && len(inputs) > 1 {
		return fmt.Errorf("--output can only be used with a single input, got %d", len(inputs))
	}
	if f.check && f.watch {
		return fmt.Errorf("--check cannot be combined with --watch")
	}

	policy, err := a.cfg.Policy(mode)
	if err != nil {
		return err
	}

	r := newRunner(a.cfg, policy, a.logger, cmd.OutOrStdout(), f)
	if f.watch {
		return r.watch(cmd.Context(), inputs)
	}
	return r.all(cmd.Context(), inputs)
}
