package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parcours/internal/app"
	"parcours/internal/config"
	"parcours/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "parcours",
	Short: "Parcours - personalisierte KI-Lernpfade",
	Long: `Parcours ist der lokale Client der Lernplattform.

Er erfasst das Profil, stößt die Kursgenerierung im Backend an und
stellt Kurse, Module und Lektionen über eine lokale API bereit.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "Pfad zur Konfigurationsdatei (JSON oder YAML)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig lädt die Konfiguration; fehlt die Datei, gelten die Standardwerte
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Konfiguration %s nicht lesbar, verwende Standardwerte: %v\n", configPath, err)
	}
	return cfg
}

// openApp baut alle Komponenten für einen Befehl auf
func openApp() (*app.App, error) {
	cfg := loadConfig()
	log := logging.New(logging.Options{Mode: cfg.LogMode, File: cfg.LogFile})
	return app.New(cfg, log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
