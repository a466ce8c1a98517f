// Handles the "ssmctl asset" command. This command exists solely to contain
// asset-specific subcommands (e.g. add, get, remove, ...)

package cmd

import (
	"github.com/spf13/cobra"
)

// assetCmd represents the asset command
var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Asset interaction",
	Long:  `Commands for storing, inspecting, and removing binary assets.`,
}

func init() {
	rootCmd.AddCommand(assetCmd)
}
