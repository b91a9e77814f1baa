package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/buildinfo"
	"github.com/cleared-dev/tally/internal/categories"
	"github.com/cleared-dev/tally/internal/classify"
	"github.com/cleared-dev/tally/internal/config"
	"github.com/cleared-dev/tally/internal/logger"
)

const (
	envHome     = "TALLY_HOME"
	envLogLevel = "TALLY_LOG_LEVEL"
	rulesFile   = "rules.yaml"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	dir      string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Classify, reconcile and roll up small business transactions",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "project directory (default $"+envHome+" or .)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (default $"+envLogLevel+" or the config)")

	rootCmd.AddCommand(
		newInitCommand(),
		newImportCommand(opts),
		newClassifyCommand(opts),
		newReconcileCommand(opts),
		newRollupCommand(opts),
		newSchemaCommand(opts),
	)

	return rootCmd
}

// setup loads .env from the working directory and puts a logger on the
// command context. Variables already set in the environment win.
func (o *globalOptions) setup(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	if o.dir == "" {
		o.dir = os.Getenv(envHome)
	}
	if o.logLevel == "" {
		o.logLevel = os.Getenv(envLogLevel)
	}
	return o.useLogger(cmd, o.logLevel)
}

func (o *globalOptions) useLogger(cmd *cobra.Command, level string) error {
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return err
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), logger.New(lvl)))
	return nil
}

// root returns the absolute project directory.
func (o *globalOptions) root() (string, error) {
	dir := o.dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

// project is an opened tally directory.
type project struct {
	root       string
	cfg        *config.Config
	chart      *categories.Service
	classifier *classify.Classifier
}

// open loads and validates the project configuration, the category chart
// and the rule table. A missing rules.yaml falls back to the built-in rules.
func (o *globalOptions) open(cmd *cobra.Command) (*project, error) {
	root, err := o.root()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, fmt.Errorf("opening project at %s: %w", root, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.FileName, err)
	}
	if o.logLevel == "" && cfg.Log.Level != "" {
		if err := o.useLogger(cmd, cfg.Log.Level); err != nil {
			return nil, err
		}
	}

	chart, err := categories.Load(root)
	if err != nil {
		return nil, err
	}

	rules, err := classify.LoadRules(filepath.Join(root, rulesFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		rules = classify.DefaultRules()
	case err != nil:
		return nil, err
	}
	if err := classify.CheckRules(rules, chart); err != nil {
		return nil, fmt.Errorf("%s: %w", rulesFile, err)
	}
	classifier, err := classify.New(rules)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rulesFile, err)
	}

	return &project{root: root, cfg: cfg, chart: chart, classifier: classifier}, nil
}
