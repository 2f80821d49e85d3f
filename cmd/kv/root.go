package kv

import (
	"github.com/spf13/cobra"

	"github.com/androidarduino/vrdb/cmd/util"
	"github.com/androidarduino/vrdb/wire/client"
)

var (
	kvClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common connection flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(shellCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the protocol client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	kvClient = client.New(util.GetClientConfig())
	return nil
}
