package cli

import (
	"github.com/kolah/codepilot/internal/config"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "1.0.0"

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "codepilot",
		Short:        "codepilot - backend snippet analysis, OpenAPI inference and auth review",
		Version:      Version,
		SilenceUsage: true,

		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	config.BindCommonFlags(root)
	root.AddCommand(
		ServeCommand(),
		AnalyzeCommand(),
		versionCommand(),
	)

	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
}
