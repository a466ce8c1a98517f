// Handles the "ssmctl asset remove" command

package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var assetRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove an asset",
	Long: `Removes the asset with the given id. Removing an id that does not exist
is a quiet no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := ssmManager.Client.RemoveAsset(context.Background(), args[0])
		if err != nil {
			return errors.Wrap(err, "Remove command failed")
		}
		if !removed {
			ssmManager.Logger.Warn("No asset with that id; nothing removed")
			return nil
		}

		ssmManager.Logger.Info("Successfully removed asset")
		return nil
	},
}

func init() {
	assetCmd.AddCommand(assetRemoveCmd)
}
