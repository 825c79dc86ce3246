// Package cmd wires the clusterpilot command line interface.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clusterpilot/clusterpilot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "clusterpilot",
	Short: "Load balancing and autoscaling control plane for replica pools",
	Long: `Clusterpilot distributes client traffic across a pool of backend
replicas and automatically adjusts the size of that pool in response
to load: a load balancer selects a backend per request and tracks
per-backend health, while an autoscaler evaluates scaling policies
against windowed metrics and resizes the deployment.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./clusterpilot.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("clusterpilot")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/clusterpilot")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CLUSTERPILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Config file is optional; defaults plus flags are enough to run.
	_ = viper.ReadInConfig()
}
