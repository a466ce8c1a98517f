// Handles the "ssmctl asset exists" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var assetExistsCmd = &cobra.Command{
	Use:   "exists [id]",
	Short: "Check whether an asset exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exists, err := ssmManager.Client.ExistsAsset(context.Background(), args[0])
		if err != nil {
			return errors.Wrap(err, "Exists command failed")
		}

		fmt.Println(exists)
		return nil
	},
}

func init() {
	assetCmd.AddCommand(assetExistsCmd)
}
