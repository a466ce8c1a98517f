// Handles the "ssmctl bucket add" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var bucketAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ssmManager.Client.AddBucket(context.Background(), args[0])
		if err != nil {
			return errors.Wrap(err, "Add command failed")
		}

		ssmManager.Logger.Info("Successfully added bucket")
		fmt.Println(id)
		return nil
	},
}

func init() {
	bucketCmd.AddCommand(bucketAddCmd)
}
