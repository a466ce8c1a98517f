// Handles the "ssmctl asset update" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/scieloorg/ssm-go/pkg/ssm"
	"github.com/spf13/cobra"
)

var assetUpdateCmdConfig struct {
	source string
	ftype  string
	meta   string
	bucket string
}

var assetUpdateCmd = &cobra.Command{
	Use:   "update [id]",
	Short: "Replace fields of an existing asset",
	Long: `Replaces the supplied fields of an existing asset. Only the flags you pass
are sent. When no asset exists with the given id the command is a quiet
no-op, matching the server's contract.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		upd := ssm.Update{
			Type:     assetUpdateCmdConfig.ftype,
			Metadata: parseKeyValue(assetUpdateCmdConfig.meta),
			Bucket:   assetUpdateCmdConfig.bucket,
		}
		if assetUpdateCmdConfig.source != "" {
			upd.Source = ssm.FromPath(assetUpdateCmdConfig.source)
		}

		id, err := ssmManager.Client.UpdateAsset(context.Background(), args[0], upd)
		if err != nil {
			return errors.Wrap(err, "Update command failed")
		}
		if id == "" {
			ssmManager.Logger.Warn("No asset with that id; nothing updated")
			return nil
		}

		ssmManager.Logger.Info("Successfully updated asset")
		fmt.Println(id)
		return nil
	},
}

func init() {
	assetCmd.AddCommand(assetUpdateCmd)

	assetUpdateCmd.Flags().StringVarP(&assetUpdateCmdConfig.source, "source", "s", "", "path of the replacement content")
	assetUpdateCmd.Flags().StringVarP(&assetUpdateCmdConfig.ftype, "type", "t", "", "replacement type tag")
	assetUpdateCmd.Flags().StringVarP(&assetUpdateCmdConfig.meta, "meta", "m", "", "replacement metadata: key1=value1,key2=value2")
	assetUpdateCmd.Flags().StringVarP(&assetUpdateCmdConfig.bucket, "bucket", "b", "", "move the asset to this bucket")
}
