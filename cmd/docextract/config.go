package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docextract/internal/api"
	"github.com/jackzampolin/docextract/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a default config file to the home directory, or to --config
when it is set. Existing files are kept unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		path := cfgFile
		if path == "" {
			path = h.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Show the effective configuration or one key",
	Long: `Show the effective configuration after defaults, the config file and
DOCEXTRACT_* environment overrides are applied. Literal credentials are
masked; ${ENV_VAR} references are shown as written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			entry, err := mgr.Value(args[0])
			if err != nil {
				return err
			}
			if !api.IsStructuredOutput() {
				fmt.Println(entry.Value)
				return nil
			}
			return api.Output(entry)
		}

		if f := mgr.ConfigFile(); f != "" && !api.IsStructuredOutput() {
			fmt.Printf("# %s\n", f)
		}
		data, err := mgr.Get().Redacted().YAML()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List documented config keys with their defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := config.DefaultEntries()
		if api.IsStructuredOutput() {
			return api.Output(entries)
		}
		for _, e := range entries {
			fmt.Printf("%-40s %-30v %s\n", e.Key, e.Value, e.Description)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configKeysCmd)

	rootCmd.AddCommand(configCmd)
}
