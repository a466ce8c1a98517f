// Handles the "ssmctl bucket exists" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var bucketExistsCmd = &cobra.Command{
	Use:   "exists [name]",
	Short: "Check whether a bucket exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exists, err := ssmManager.Client.ExistsBucket(context.Background(), args[0])
		if err != nil {
			return errors.Wrap(err, "Exists command failed")
		}

		fmt.Println(exists)
		return nil
	},
}

func init() {
	bucketCmd.AddCommand(bucketExistsCmd)
}
