package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"daemonizer/internal/config"
	"daemonizer/internal/daemon"
	"daemonizer/internal/launch"
	"daemonizer/internal/version"
)

// runCaller is replaced in tests.
var runCaller = daemon.RunCaller

type rootOptions struct {
	keepEnvironment bool
	logPath         string
	pidPath         string
	configPath      string
}

// NewRootCmd creates the daemonizer command and its hidden stages.
func NewRootCmd() *cobra.Command {
	var opts rootOptions

	rootCmd := &cobra.Command{
		Use:   "daemonizer [OPTION] program [ARGUMENTS]",
		Short: "Run a program as a detached Unix daemon",
		Long: `daemonizer detaches program from the terminal and session it was started
from, points its standard output and error at a locked log file and hands
the process over to it with a clean environment.`,
		Version:       version.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd, opts, args)
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	rootCmd.SetVersionTemplate("{{.Name}} version {{.Version}}\n")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	flags := rootCmd.Flags()
	// Everything after the program name belongs to the program.
	flags.SetInterspersed(false)
	flags.BoolVarP(&opts.keepEnvironment, "keep-environment", "e", false, "Keep the caller's environment")
	flags.StringVarP(&opts.logPath, "log", "l", launch.DefaultLogPath, "Log file for the program's output")
	flags.StringVarP(&opts.pidPath, "pid", "p", "", "Write the daemon's pid to this file")
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file (default $"+config.EnvVar+")")

	rootCmd.AddCommand(
		newLeaderCmd(),
		newDaemonCmd(),
	)

	return rootCmd
}

// buildSpec merges the configuration file, the flags and the positional
// program. Flags win over the file.
func buildSpec(cmd *cobra.Command, opts rootOptions, args []string) (launch.Spec, error) {
	cfg, err := config.Load(config.Path(opts.configPath))
	if err != nil {
		return launch.Spec{}, err
	}
	if len(args) == 0 {
		if args, err = cfg.CommandArgs(); err != nil {
			return launch.Spec{}, err
		}
	}
	if len(args) == 0 {
		return launch.Spec{}, &UsageError{Err: launch.ErrNoProgram, Code: 1}
	}

	spec := launch.New(args[0], args[1:]...)
	if err := spec.ApplyConfig(cfg); err != nil {
		return launch.Spec{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("log") {
		spec.LogPath = opts.logPath
	}
	if flags.Changed("pid") {
		spec.PIDPath = opts.pidPath
	}
	if flags.Changed("keep-environment") {
		spec.KeepEnvironment = opts.keepEnvironment
	}
	spec.LaunchID = uuid.New().String()
	return spec, nil
}

func runLaunch(cmd *cobra.Command, opts rootOptions, args []string) error {
	spec, err := buildSpec(cmd, opts, args)
	if err != nil {
		return err
	}
	code, err := runCaller(spec)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}
