package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/JuniorJPDJ/telegram-rss/internal/yamlconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix = "TELEGRAM_RSS"

	// defaultConfigFile is read from the working directory when --config is
	// not given and the file exists.
	defaultConfigFile = "config.yml"
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "telegram-rss",
		Short:        "Telegram bot that manages RSS feed subscriptions",
		SilenceUsage: true,
	}
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig()
	}

	cmd.PersistentFlags().String("config", "", "Config file path (default: ./config.yml if present).")
	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))

	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error (defaults to info; debug if --trace).")
	cmd.PersistentFlags().String("log-format", "text", "Logging format: text|json.")
	cmd.PersistentFlags().Bool("log-add-source", false, "Include source file:line in logs.")
	cmd.PersistentFlags().Bool("trace", false, "Print extra debug info to stderr.")

	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.add_source", cmd.PersistentFlags().Lookup("log-add-source"))
	_ = viper.BindPFlag("trace", cmd.PersistentFlags().Lookup("trace"))

	cmd.AddCommand(newBotCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newSplitCmd())
	cmd.AddCommand(newSubsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// initConfig loads the config file through yamlconfig so the custom tags
// work, then merges it into viper. A config that fails to load is fatal.
func initConfig() error {
	initViperDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	cfgFile := configFile()
	if cfgFile == "" {
		return nil
	}
	ns, err := yamlconfig.New().LoadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := viper.MergeConfigMap(ns.ToMap()); err != nil {
		return fmt.Errorf("failed to apply config %s: %w", cfgFile, err)
	}
	return nil
}

// configFile is the --config value, or config.yml in the working directory
// when that exists.
func configFile() string {
	if cfgFile := strings.TrimSpace(viper.GetString("config")); cfgFile != "" {
		return cfgFile
	}
	if st, err := os.Stat(defaultConfigFile); err == nil && !st.IsDir() {
		return defaultConfigFile
	}
	return ""
}
