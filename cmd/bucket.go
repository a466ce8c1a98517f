// Handles the "ssmctl bucket" command. This command exists solely to contain
// bucket-specific subcommands (add, rename, remove, exists)

package cmd

import (
	"github.com/spf13/cobra"
)

// bucketCmd represents the bucket command
var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Bucket interaction",
	Long:  `Commands for creating, renaming, and removing asset buckets.`,
}

func init() {
	rootCmd.AddCommand(bucketCmd)
}
