// Handles the "ssmctl asset add" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/scieloorg/ssm-go/pkg/ssm"
	"github.com/spf13/cobra"
)

var assetAddCmdConfig struct {
	source string
	ftype  string
	meta   string
	bucket string
}

var assetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a local file as a new asset",
	Long: `Uploads the file at --source to the SSM server and prints the id of the
newly created asset. The server processes the upload asynchronously; poll
"ssmctl asset state <id>" for progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := ssmManager.Client.AddAsset(context.Background(),
			ssm.FromPath(assetAddCmdConfig.source),
			assetAddCmdConfig.ftype,
			parseKeyValue(assetAddCmdConfig.meta),
			assetAddCmdConfig.bucket)
		if err != nil {
			return errors.Wrap(err, "Add command failed")
		}

		ssmManager.Logger.Info("Successfully added asset")
		fmt.Println(id)
		return nil
	},
}

func init() {
	assetCmd.AddCommand(assetAddCmd)

	// Define the command line arguments for this subcommand
	assetAddCmd.Flags().StringVarP(&assetAddCmdConfig.source, "source", "s", "", "path of the file to store")
	assetAddCmd.Flags().StringVarP(&assetAddCmdConfig.ftype, "type", "t", "", "free-form type tag for the asset")
	assetAddCmd.Flags().StringVarP(&assetAddCmdConfig.meta, "meta", "m", "", "metadata key-value pairs: key1=value1,key2=value2")
	assetAddCmd.Flags().StringVarP(&assetAddCmdConfig.bucket, "bucket", "b", "", "bucket to store the asset in (server default when omitted)")
	assetAddCmd.MarkFlagRequired("source")
}
