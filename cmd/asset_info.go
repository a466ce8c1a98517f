// Handles the "ssmctl asset info" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var assetInfoCmd = &cobra.Command{
	Use:   "info [id]",
	Short: "Print the retrieval URL of an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := ssmManager.Client.GetAssetInfo(context.Background(), args[0])
		if err != nil {
			return errors.Wrap(err, "Info command failed")
		}

		fmt.Printf("url:      %s\n", info.URL)
		fmt.Printf("url_path: %s\n", info.URLPath)
		return nil
	},
}

func init() {
	assetCmd.AddCommand(assetInfoCmd)
}
