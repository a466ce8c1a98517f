// Handles the "ssmctl bucket rename" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var bucketRenameCmd = &cobra.Command{
	Use:   "rename [name] [new-name]",
	Short: "Rename a bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ssmManager.Client.UpdateBucket(context.Background(), args[0], args[1])
		if err != nil {
			return errors.Wrap(err, "Rename command failed")
		}

		ssmManager.Logger.Info("Successfully renamed bucket")
		fmt.Println(id)
		return nil
	},
}

func init() {
	bucketCmd.AddCommand(bucketRenameCmd)
}
