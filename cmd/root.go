package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/santileortiz/dhtfs/cfg"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	MountConfig   = cfg.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "dhtfs",
	Short: "Mount a tag-based virtual filesystem backed by a local directory",
	Long: `dhtfs organizes files by tag instead of by directory tree: every
file carries a set of tags, and every path you list or create is itself a
set of tags, resolved against the index rather than a fixed hierarchy. See
"dhtfs setup" to initialize a backing directory and "dhtfs mount" to serve
it over FUSE.`,
}

// Execute runs the root command, matching the teacher's Execute/os.Exit(1)
// convention for a failed run.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the YAML config file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(setupCmd)
}

func initConfig() {
	decodeHook := viper.DecodeHook(cfg.DecodeHook())

	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&MountConfig, decodeHook)
		return
	}

	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&MountConfig, decodeHook)
}

func checkPreflight() error {
	if bindErr != nil {
		return bindErr
	}
	if configFileErr != nil {
		return configFileErr
	}
	if unmarshalErr != nil {
		return unmarshalErr
	}
	return nil
}
