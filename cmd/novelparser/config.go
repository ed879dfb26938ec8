package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/config"
	"github.com/jackzampolin/novelparser/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		path := h.ConfigPath()
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every config key with its effective value",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		return api.Output(map[string]any{
			"config_file": cm.ConfigFile(),
			"entries":     cm.Entries(),
		})
	},
}

var configSaveModelCmd = &cobra.Command{
	Use:   "save-model",
	Short: "Save the configured model settings to the database",
	Long: `Save the model settings from the config file into the database.

Saved settings take precedence over the config file, so a model chosen once
keeps being used when novelparser runs from another directory. ${ENV_VAR}
references are stored unresolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := cm.Get()
		dbPath := cfg.Storage.Path
		if dbPath == "" {
			dbPath = h.DBPath()
		}
		st, err := store.Open(store.Config{Path: dbPath})
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SaveLLMConfig(cmd.Context(), cfg.LLM); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved model %s (%s)\n", cfg.LLM.Model, cfg.LLM.BaseURL)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveModelCmd)
	rootCmd.AddCommand(configCmd)
}
