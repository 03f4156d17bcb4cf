// Package cli implements the crate command-line interface. Every command
// works on one crate directory, resolved from --crate, the crate key in
// config.yaml, the ROCRATE_PATH environment variable, or the current
// directory, in that order.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/crates/internal/logging"
	"github.com/mesh-intelligence/crates/internal/paths"
	"github.com/mesh-intelligence/crates/internal/tracing"
	"github.com/mesh-intelligence/crates/pkg/types"
)

// Exit codes. User errors are the engine's typed errors and command-line
// mistakes; everything else (disk, permissions, network) is a system error.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	crate     string
	configDir string
	logLevel  string
	jsonMode  bool
}

// env is the state shared by the commands of one invocation. It is
// populated by the root PersistentPreRunE.
type env struct {
	flags     rootFlags
	configDir string
	cfg       *viper.Viper
	logger    zerolog.Logger
	tracer    *tracing.Provider

	// started is set once argument parsing succeeded, so errors returned
	// before it are usage errors.
	started bool
}

// NewRootCmd creates the top-level "crate" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root, _ := newRoot()
	return root
}

func newRoot() (*cobra.Command, *env) {
	e := &env{logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "crate",
		Short: "Describe research data as an RO-Crate",
		Long: `crate maintains the ro-crate-metadata.json manifest of a research object:
datasets, software, computations and schemas, linked by provenance edges.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e.started = true
			return e.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.tracer == nil {
				return nil
			}
			return e.tracer.Shutdown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&e.flags.crate, "crate", "", "crate directory (default: config crate, $ROCRATE_PATH, or the current directory)")
	root.PersistentFlags().StringVar(&e.flags.configDir, "config-dir", "", "configuration directory (default: $CRATE_CONFIG_DIR or the platform config dir)")
	root.PersistentFlags().StringVar(&e.flags.logLevel, "log-level", "", "log level: debug, info, warn, error (default: config log_level)")
	root.PersistentFlags().BoolVar(&e.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(e))
	root.AddCommand(newCreateCmd(e))
	root.AddCommand(newRegisterCmd(e))
	root.AddCommand(newAddCmd(e))
	root.AddCommand(newSchemaCmd(e))
	root.AddCommand(newValidateCmd(e))
	root.AddCommand(newFilesCmd(e))
	root.AddCommand(newListCmd(e))
	root.AddCommand(newShowCmd(e))
	root.AddCommand(newLineageCmd(e))
	root.AddCommand(newWatchCmd(e))
	root.AddCommand(newRecentCmd(e))

	return root, e
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	root, e := newRoot()
	return execute(ctx, root, e)
}

func execute(ctx context.Context, root *cobra.Command, e *env) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(root.ErrOrStderr(), "crate:", err)
	if !e.started || types.IsUserError(err) {
		return exitUserError
	}
	return exitSysError
}

// setup loads the configuration and builds the logger and tracer.
func (e *env) setup(cmd *cobra.Command) error {
	dir, err := paths.ResolveConfigDir(e.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	e.configDir = dir

	if e.cfg, err = loadConfig(dir); err != nil {
		return err
	}

	level := e.flags.logLevel
	if level == "" {
		level = e.cfg.GetString(cfgKeyLogLevel)
	}
	if e.logger, err = logging.New(cmd.ErrOrStderr(), level); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidValue, err)
	}

	e.tracer, err = tracing.NewProvider(tracing.Config{
		Enabled: e.cfg.GetBool(cfgKeyTraceEnabled),
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("start tracing: %w", err)
	}
	return nil
}
