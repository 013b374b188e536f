package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config enthält alle Konfigurationseinstellungen
type Config struct {
	// Server-Einstellungen
	ServerPort string `json:"server_port" yaml:"server_port"`
	StaticDir  string `json:"static_dir" yaml:"static_dir"`

	// Pfade
	DatabasePath string `json:"database_path" yaml:"database_path"`

	// Backend (Generierungsdienst)
	BackendURL            string `json:"backend_url" yaml:"backend_url"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds"`

	// Lektionen
	MinLessonLength    int `json:"min_lesson_length" yaml:"min_lesson_length"`
	OutlineConcurrency int `json:"outline_concurrency" yaml:"outline_concurrency"`
	ChatHistoryLimit   int `json:"chat_history_limit" yaml:"chat_history_limit"`

	// Logging
	LogMode string `json:"log_mode" yaml:"log_mode"`
	LogFile string `json:"log_file" yaml:"log_file"`
}

// Default gibt die Standardkonfiguration zurück
func Default() *Config {
	return &Config{
		ServerPort:            "8080",
		StaticDir:             "./web/static",
		DatabasePath:          "parcours.db",
		BackendURL:            "http://localhost:3001",
		RequestTimeoutSeconds: 180,
		MinLessonLength:       120,
		OutlineConcurrency:    4,
		ChatHistoryLimit:      50,
		LogMode:               "dev",
	}
}

// Load lädt die Konfiguration aus einer Datei (JSON oder YAML) und wendet
// danach die Umgebungsvariablen an
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		cfg.ApplyEnv()
		return cfg, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		cfg.ApplyEnv()
		return cfg, err
	}

	cfg.normalize()
	cfg.ApplyEnv()
	return cfg, nil
}

// Save speichert die Konfiguration in eine Datei
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv überschreibt Werte aus PARCOURS_*-Variablen
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("PARCOURS_BACKEND_URL")); v != "" {
		c.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PARCOURS_PORT")); v != "" {
		c.ServerPort = v
	}
	if v := strings.TrimSpace(os.Getenv("PARCOURS_DB")); v != "" {
		c.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("PARCOURS_LOG_MODE")); v != "" {
		c.LogMode = v
	}
	if v := strings.TrimSpace(os.Getenv("PARCOURS_REQUEST_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RequestTimeoutSeconds = n
		}
	}
}

// RequestTimeout liefert das Timeout für Backend-Anfragen
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// normalize ersetzt unsinnige Werte durch Standardwerte
func (c *Config) normalize() {
	def := Default()
	if c.MinLessonLength <= 0 {
		c.MinLessonLength = def.MinLessonLength
	}
	if c.OutlineConcurrency <= 0 {
		c.OutlineConcurrency = def.OutlineConcurrency
	}
	if c.ChatHistoryLimit <= 0 {
		c.ChatHistoryLimit = def.ChatHistoryLimit
	}
	if strings.TrimSpace(c.ServerPort) == "" {
		c.ServerPort = def.ServerPort
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
