package cmd

import (
	"github.com/spf13/cobra"

	"daemonizer/internal/daemon"
	"daemonizer/internal/launch"
)

func newLeaderCmd() *cobra.Command {
	var stage *launch.StageFlags

	cmd := &cobra.Command{
		Use:    daemon.LeaderStage + " [flags] -- <program> [args...]",
		Short:  "Create a new session and start the daemon (internal)",
		Hidden: true,
		Args:   cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := stage.Spec(args)
			if err != nil {
				return err
			}
			// RunLeader has already reported the failure on stderr.
			if err := daemon.RunLeader(spec); err != nil {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
	stage = launch.BindStageFlags(cmd.Flags())
	return cmd
}

func newDaemonCmd() *cobra.Command {
	var stage *launch.StageFlags
	var leaderPID int

	cmd := &cobra.Command{
		Use:    daemon.DaemonStage + " [flags] -- <program> [args...]",
		Short:  "Run as the daemon (internal)",
		Hidden: true,
		Args:   cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := stage.Spec(args)
			if err != nil {
				return err
			}
			// RunDaemon only returns on failure, after logging it.
			if err := daemon.RunDaemon(spec, leaderPID); err != nil {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}
	stage = launch.BindStageFlags(cmd.Flags())
	cmd.Flags().IntVar(&leaderPID, "leader-pid", 0, "Pid of the exited session leader")
	return cmd
}
