package serve

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/androidarduino/vrdb/cmd/util"
	"github.com/androidarduino/vrdb/lib/engine"
	"github.com/androidarduino/vrdb/wire/server"
)

var (
	serveCmdConfig = server.DefaultConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the vrdb server",
		Long:    `Start the vrdb server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is VRDB_<flag> (e.g. VRDB_DATA_DIR=/var/lib/vrdb)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "127.0.0.1:5991", cmdUtil.WrapString("The address the key-value listener binds to"))

	key = "admin-endpoint"
	ServeCmd.PersistentFlags().String(key, "127.0.0.1:5992", cmdUtil.WrapString("The address of the admin HTTP surface serving /metrics, /stats, /tables and POST /merge. Empty string disables it"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the directory used for storing the table files. It is owned exclusively by this server instance"))

	key = "max-entries"
	ServeCmd.PersistentFlags().Int(key, 1_000_000, cmdUtil.WrapString("Number of buffered entries after which the in-memory buffer is flushed to a new table on disk"))

	key = "merge-interval"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Interval in seconds between background merges of the on-disk tables (0 = merge only via the admin surface)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("Per-connection read/write timeout in seconds (0 = no timeout)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and
// environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.AdminEndpoint = viper.GetString("admin-endpoint")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.MaxEntries = viper.GetInt("max-entries")
	serveCmdConfig.MergeIntervalSec = viper.GetInt("merge-interval")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run starts the vrdb server
func run(_ *cobra.Command, _ []string) error {
	logger, err := cmdUtil.NewLogger(serveCmdConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting vrdb server")
	logger.Info(serveCmdConfig.String())

	eng, err := engine.Open(&engine.Options{
		DataDir:    serveCmdConfig.DataDir,
		MaxEntries: serveCmdConfig.MaxEntries,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	// Serve until SIGINT/SIGTERM; the engine flushes its buffer on the
	// way down.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(*serveCmdConfig, eng, logger)
	if err := srv.Serve(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
