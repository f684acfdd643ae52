// Package main is the campusevents binary: the HTTP API plus the
// maintenance commands that operate on the same database.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"campusevents-backend/internal/config"
	"campusevents-backend/internal/database"
)

const appName = "campusevents"

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	envFile  string
	logLevel string
}

func rootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Campus event registration service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var paths []string
			if g.envFile != "" {
				paths = append(paths, g.envFile)
			}
			return config.LoadDotEnv(paths...)
		},
	}
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "dotenv file to load (default ./.env)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(&g),
		migrateCmd(&g),
		seedCmd(&g),
		normalizeEmailsCmd(&g),
		reconcileCmd(&g),
		notifyCmd(&g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, version)
			},
		},
	)
	return cmd
}

func newLogger(cfg config.Config, g *globalFlags) *slog.Logger {
	if g.logLevel != "" {
		cfg.LogLevel = strings.ToLower(g.logLevel)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// openDB connects and migrates. The caller closes the returned handle.
func openDB(cfg config.Config, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}

// toolEnv loads config, logger and database for a maintenance command.
func toolEnv(g *globalFlags) (config.Config, *slog.Logger, *gorm.DB, error) {
	cfg, err := config.Parse()
	if err != nil {
		return cfg, nil, nil, err
	}
	logger := newLogger(cfg, g)
	db, err := openDB(cfg, logger)
	if err != nil {
		return cfg, logger, nil, err
	}
	return cfg, logger, db, nil
}
