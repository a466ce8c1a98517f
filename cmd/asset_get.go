// Handles the "ssmctl asset get" command

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var assetGetOutput string

var assetGetCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Fetch an asset record",
	Long: `Prints the stored fields of an asset. Metadata is shown exactly as the
server holds it (an encoded string). With --output the binary content is
written to a file instead of being discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asset, err := ssmManager.Client.GetAsset(context.Background(), args[0])
		if err != nil {
			return errors.Wrap(err, "Get command failed")
		}

		fmt.Printf("uuid:     %s\n", asset.UUID)
		fmt.Printf("filename: %s\n", asset.Filename)
		fmt.Printf("type:     %s\n", asset.Type)
		fmt.Printf("bucket:   %s\n", asset.Bucket)
		fmt.Printf("metadata: %s\n", asset.Metadata)
		fmt.Printf("size:     %d\n", len(asset.File))

		if assetGetOutput != "" {
			if err := os.WriteFile(assetGetOutput, asset.File, 0644); err != nil {
				return errors.Wrap(err, "Failed to write asset content")
			}
			ssmManager.Logger.Info("Wrote asset content to: " + assetGetOutput)
		}
		return nil
	},
}

func init() {
	assetCmd.AddCommand(assetGetCmd)

	assetGetCmd.Flags().StringVarP(&assetGetOutput, "output", "o", "", "write the asset content to this path")
}
