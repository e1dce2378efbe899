// Root command for the stocklink CLI.
package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dukaforge/stocklink/internal/paths"
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagVerbose   bool
)

// cfg holds the loaded configuration. Set by PersistentPreRunE so all
// subcommands can use it.
var cfg *viper.Viper

// logger is the process-wide structured logger, built after flags are parsed.
var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "stocklink",
	Short: "Stocklink synchronizes ERP stock into a local entity store",
	Long: `Stocklink fetches stock record sets from a remote ERP system,
reconciles quantities across warehouses and combination parts, and keeps a
local entity store in sync.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}

		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		cfg, err = loadConfig(configDir)
		if err != nil {
			return err
		}

		logger, err = buildLogger(flagVerbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.stocklink-db)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(combosCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(attachCmd)
}

// resolveDataDir returns the data directory following the precedence:
// --data-dir flag > config data_dir > STOCKLINK_DATA_DIR env > CWD default.
func resolveDataDir() (string, error) {
	configValue := ""
	if cfg != nil {
		configValue = cfg.GetString(cfgKeyDataDir)
	}
	return paths.ResolveDataDir(flagDataDir, configValue)
}

// resolveConfigDir returns the configuration directory following the
// precedence: --config-dir flag > STOCKLINK_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}
