package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Konfiguration anzeigen oder anlegen",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Schreibt die aktuelle Konfiguration (Standardwerte + Umgebung) nach --config",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Konfiguration gespeichert: %s\n", configPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
