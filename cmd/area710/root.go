package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"area710/internal/config"
	appLog "area710/internal/log"
	"area710/internal/project"
	"area710/internal/repo"
)

var (
	configPath  string
	listenAddr  string
	projectPath string
)

var rootCmd = &cobra.Command{
	Use:   "area710",
	Short: "Edit the area710 event and gallery data",
	Long: `area710 edits events.json and gallery.json of a website project
together with the images they reference.

  serve    Run the browser editor
  export   Write a backup archive of the project
  stats    Print dashboard figures
  ics      Print the public calendar feed
  import   Add blocked slots from a remote calendar`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config if set)")
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", "", "Project directory (overrides config and PROJECT_PATH)")
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "area710.yaml"
	}
	return filepath.Join(dir, "area710", "config.yaml")
}

// loadConfig reads the config file and applies flag overrides and the log
// level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if cfg == nil {
			appLog.Error("failed to load config", err, "config_path", configPath)
			return nil, err
		}
		appLog.Warn("config could not be written; using defaults", "config_path", configPath, "err", err)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if projectPath != "" {
		cfg.ProjectPath = projectPath
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// openRepository selects the configured project for the one-shot commands.
func openRepository(cfg *config.Config) (*repo.Repository, error) {
	if cfg.ProjectPath == "" {
		return nil, errors.New("no project directory; pass --project or set project_path")
	}
	p, err := project.Open(cfg.ProjectPath)
	if err != nil {
		return nil, err
	}
	return repo.New(p, repo.WithOverwriteCorrupt(cfg.Storage.OverwriteCorrupt)), nil
}
