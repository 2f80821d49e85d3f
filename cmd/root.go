package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/androidarduino/vrdb/cmd/kv"
	"github.com/androidarduino/vrdb/cmd/serve"
	"github.com/androidarduino/vrdb/cmd/sst"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "vrdb",
		Short: "log-structured key-value store",
		Long: fmt.Sprintf(`vrdb (v%s)

A single-node, ordered key-value store built on a log-structured merge
engine: writes land in an in-memory buffer, flushes produce immutable
sorted tables on disk, and merges keep the table count bounded.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of vrdb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vrdb v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(sst.TableCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
