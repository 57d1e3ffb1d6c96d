// Package main provides the vibe-enhancer command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".vibe-enhancer"

// usageError marks errors caused by bad invocation; they exit with ExitUsage
// after printing the command's usage.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// usageArgs wraps a positional-argument validator so its failures are usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// app holds state shared by all subcommands.
type app struct {
	stdout, stderr io.Writer
	v              *viper.Viper
	logger         *zap.Logger

	cfgFile string
	verbose bool

	buildLogger func(verbose bool) (*zap.Logger, error)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:      stdout,
		stderr:      stderr,
		v:           viper.New(),
		logger:      zap.NewNop(),
		buildLogger: newLogger,
	}
}

// newLogger builds the production logger, writing console-encoded entries to
// stderr so reports on stdout stay clean.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	return execute(newApp(stdout, stderr), args)
}

// execute runs the command line and maps the outcome to an exit code.
func execute(a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)

	cmd, err := root.ExecuteC()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) || strings.HasPrefix(err.Error(), "unknown command") {
		fmt.Fprintf(a.stderr, "\n%s", cmd.UsageString())
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-enhancer",
		Short: "vibe-enhancer - enhancer regulatory module identification",
		Long: `vibe-enhancer identifies enhancer -> transcription factor -> target gene
modules from enhancer and gene expression profiles, TFBS calls and gene
proximity.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(isConfigCmd(cmd)); err != nil {
				return err
			}
			logger, err := a.buildLogger(a.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetVersionTemplate("vibe-enhancer version {{.Version}}\n")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ~/"+configName+".yaml)")

	root.AddCommand(newIdentifyCmd(a))
	root.AddCommand(newQueryCmd(a))
	root.AddCommand(newCompareCmd(a))
	root.AddCommand(newConfigCmd(a))

	return root
}

// isConfigCmd reports whether cmd is the config command or one of its
// subcommands.
func isConfigCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "config" && c.Parent() != nil && !c.Parent().HasParent() {
			return true
		}
	}
	return false
}

// initConfig loads the config file and environment. A missing default config
// file is not an error; a missing --config file is, unless allowMissing is set
// so that 'config set' can create it.
func (a *app) initConfig(allowMissing bool) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("VIBE_ENHANCER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if missing && (a.cfgFile == "" || allowMissing) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// configPath returns the config file in use, or the default location.
func (a *app) configPath() (string, error) {
	if f := a.v.ConfigFileUsed(); f != "" {
		return f, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}
