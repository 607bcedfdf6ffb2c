package main

import (
	"fmt"
	"os"

	"github.com/JuniorJPDJ/telegram-rss/internal/outputfmt"
	"github.com/JuniorJPDJ/telegram-rss/internal/yamlconfig"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the config file after !yamlenv expansion",
		Long: "Print the config file after !yamlenv expansion.\n\n" +
			"By default the rewritten YAML is printed with !env and !time still tagged. " +
			"With --resolved every tag is applied and the final values are printed. " +
			"Bot tokens are redacted either way.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configFile()
			if path == "" {
				return fmt.Errorf("no config file (use --config or create %s)", defaultConfigFile)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			loader := yamlconfig.New()

			var out []byte
			if resolved, _ := cmd.Flags().GetBool("resolved"); resolved {
				ns, err := loader.LoadNamespace(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				out, err = yaml.Marshal(ns)
				if err != nil {
					return err
				}
			} else {
				out, err = yamlconfig.Emit(loader.Parse(data))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), outputfmt.RedactBotToken(string(out)))
			return err
		},
	}
	cmd.Flags().Bool("resolved", false, "Apply !env and !time and print the final values.")
	return cmd
}
