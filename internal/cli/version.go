package cli

import (
	"github.com/spf13/cobra"

	"expdb/internal/version"
)

// addVersionCommand adds the version command
func (app *App) addVersionCommand(rootCmd *cobra.Command) {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the version of expdb with build information.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if app.printer.Structured() {
				info, err := version.GetInfo()
				if err != nil {
					return err
				}
				return app.printer.Data(info)
			}
			detailed, _ := cmd.Flags().GetBool("detailed")
			if detailed {
				app.printer.Println(version.GetDetailedVersion())
			} else {
				app.printer.Println(version.GetFormattedVersion())
			}
			return nil
		},
	}

	versionCmd.Flags().Bool("detailed", false, "Show detailed version information")
	rootCmd.AddCommand(versionCmd)
}
