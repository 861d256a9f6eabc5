package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foundry [targets...]",
		Short: "Foundry builds multi-project workspaces incrementally",
		Long: `Foundry runs the requested tasks, and everything they depend on, in every
project of the workspace. Targets are task names such as "build", "jvm:test" or
"compileFreeDebug". Without targets the manifest's default_targets are run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args)
		},
	}

	addSettingsFlags(cmd)
	cmd.Flags().Bool("dry-run", false, "Print the execution plan without running anything")
	cmd.Flags().Bool("tui", false, "Show live progress in an interactive view")

	cmd.AddCommand(newTasksCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}
