package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"campusevents-backend/internal/auth"
	"campusevents-backend/internal/config"
	"campusevents-backend/internal/database"
	"campusevents-backend/internal/notify"
	"campusevents-backend/internal/repository"
	"campusevents-backend/internal/seed"
	"campusevents-backend/internal/service"
)

func migrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := toolEnv(g)
			if err != nil {
				return err
			}
			defer database.Close(db)
			logger.Info("migration complete")
			return nil
		},
	}
}

func seedCmd(g *globalFlags) *cobra.Command {
	var (
		file  string
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and events",
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := loadFixture(file)
			if err != nil {
				return err
			}
			_, logger, db, err := toolEnv(g)
			if err != nil {
				return err
			}
			defer database.Close(db)

			s := seed.NewSeeder(db, logger)
			if reset {
				if err := s.Reset(cmd.Context()); err != nil {
					return err
				}
				logger.Warn("existing users, events and registrations deleted")
			}
			report, err := s.Apply(cmd.Context(), fixture)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML fixture (default: built-in demo data)")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all users, events and registrations first")
	return cmd
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.Load(path)
}

func normalizeEmailsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize-emails",
		Short: "Trim and lowercase account emails, reporting conflicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, db, err := toolEnv(g)
			if err != nil {
				return err
			}
			defer database.Close(db)

			// Never issues tokens; the resolver only satisfies the constructor.
			tokens := auth.NewResolver(cfg.Auth.Secret, cfg.Auth.TTL, time.Now)
			accounts := service.NewAccountService(repository.NewUserRepository(db), tokens, false, logger)

			report, err := accounts.NormalizeEmails(cmd.Context())
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if len(report.Conflicts) > 0 {
				return fmt.Errorf("%d account(s) need manual resolution", len(report.Conflicts))
			}
			return nil
		},
	}
}

func reconcileCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild every event roster from the registration ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := toolEnv(g)
			if err != nil {
				return err
			}
			defer database.Close(db)

			svc := service.NewRegistrationService(
				repository.NewEventRepository(db),
				repository.NewRegistrationRepository(db),
				service.WithLogger(logger),
			)
			report, err := svc.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func notifyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Consume registration messages and send confirmations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Parse()
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled() {
				return errors.New("KAFKA_BROKERS is required")
			}
			logger := newLogger(cfg, g)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("notifier started")
			return notify.NewNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, logger).Run(ctx)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
