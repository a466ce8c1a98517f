// Handles the "ssmctl asset state" command

package cmd

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var assetStateCmd = &cobra.Command{
	Use:   "state [id]",
	Short: "Poll the processing state of an asset task",
	Long: `Prints the server-side state label of the asynchronous task handling an
asset. The label is opaque to this client; it is polled on demand, never
cached.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := ssmManager.Client.GetTaskState(context.Background(), args[0])
		if err != nil {
			return errors.Wrap(err, "State command failed")
		}

		fmt.Println(state)
		return nil
	},
}

func init() {
	assetCmd.AddCommand(assetStateCmd)
}
