// Handles the "ssmctl bucket remove" command

package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var bucketRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a bucket",
	Long: `Removes the bucket with the given name. Removing a name that does not
exist is a quiet no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := ssmManager.Client.RemoveBucket(context.Background(), args[0])
		if err != nil {
			return errors.Wrap(err, "Remove command failed")
		}
		if !removed {
			ssmManager.Logger.Warn("No bucket with that name; nothing removed")
			return nil
		}

		ssmManager.Logger.Info("Successfully removed bucket")
		return nil
	},
}

func init() {
	bucketCmd.AddCommand(bucketRemoveCmd)
}
