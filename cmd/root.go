// Root of command-line argument parsing.
// This file was based off the standard cobra template, see
// https://github.com/spf13/cobra
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/scieloorg/ssm-go/pkg/ssmmgr"
	"github.com/spf13/cobra"
)

var cfgFile string
var refreshSchema bool

var ssmManager *ssmmgr.SsmManager

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ssmctl",
	Short: "Command line client for the Simple Storage Manager",
	Long: `Store, inspect, and remove binary assets and buckets on a remote SSM
server. The wire schema is fetched from the server and compiled on first use.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		mgrArgs := map[string]interface{}{}
		if cfgFile != "" {
			mgrArgs["config-file"] = cfgFile
		}
		if refreshSchema {
			mgrArgs["refresh-schema"] = true
		}

		var err error
		ssmManager, err = ssmmgr.NewManager(mgrArgs)
		if err != nil {
			fmt.Printf("Failed to initialize ssm manager: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ssmManager.Destroy()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if ssmManager == nil || ssmManager.Logger == nil {
			fmt.Printf("%v\n", err)
		} else {
			ssmManager.Logger.Error(err)
		}
		os.Exit(1)
	}
}

func parseKeyValue(s string) map[string]interface{} {

	if s == "" {
		return nil
	}

	result := make(map[string]interface{})
	for _, pair := range strings.Split(s, ",") {
		keyValue := strings.Split(pair, "=")
		if len(keyValue) == 2 {
			result[keyValue[0]] = keyValue[1]
		}
	}

	return result
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is environment + built-in defaults)")
	rootCmd.PersistentFlags().BoolVar(&refreshSchema, "refresh-schema", false, "refetch and recompile the wire schema before running")
}
