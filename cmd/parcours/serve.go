package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Startet die lokale API und das Frontend",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Server-Port (überschreibt die Konfiguration)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.Log.Sync()

	cfg := a.Config
	if servePort != "" {
		cfg.ServerPort = servePort
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	if a.Backend.IsAvailable(ctx) {
		a.Log.Info("Backend erreichbar", "url", a.Backend.BaseURL())
	} else {
		a.Log.Warn("Backend NICHT erreichbar", "url", a.Backend.BaseURL())
	}
	cancel()

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: a.Router(),
	}

	// Graceful Shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		a.Log.Info("Server wird heruntergefahren")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	a.Log.Info("Server läuft",
		"addr", "http://localhost:"+cfg.ServerPort,
		"database", cfg.DatabasePath,
		"static", cfg.StaticDir,
	)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
