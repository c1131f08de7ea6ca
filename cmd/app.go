package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"careerquiz/auth"
	"careerquiz/config"
	"careerquiz/crypto"
	"careerquiz/db"
	"careerquiz/i18n"
	"careerquiz/logging"
	"careerquiz/models"

	"github.com/spf13/cobra"
)

const defaultAdminPassword = "admin123"

// app holds what every subcommand needs: config, logger, database and auth service.
type app struct {
	cfg  config.Config
	log  *slog.Logger
	db   *db.DB
	auth *auth.Service
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	if err := i18n.LoadTranslations(); err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}

	database, err := db.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	svc, err := auth.NewService(database.Accounts(), cfg.BcryptCost, log)
	if err != nil {
		database.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, db: database, auth: svc}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func (a *app) keys() crypto.Keys {
	return crypto.DeriveKeys(a.cfg.SessionKey)
}

// ensureAdmin creates the configured admin account on first start.
func (a *app) ensureAdmin(ctx context.Context) error {
	password := a.cfg.AdminPassword
	usingDefault := password == ""
	if usingDefault {
		password = defaultAdminPassword
	}

	created, err := a.auth.SeedAdmin(ctx, a.cfg.AdminUsername, password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if !created {
		acc, err := a.db.Accounts().GetByUsername(ctx, a.cfg.AdminUsername)
		if err != nil {
			return fmt.Errorf("look up admin: %w", err)
		}
		if acc.Role != models.RoleAdmin {
			a.log.WarnContext(ctx, "admin username is held by a non-admin account; no administrator can log in",
				"username", acc.Username, "role", acc.Role)
		}
		return nil
	}
	if usingDefault {
		a.log.WarnContext(ctx, "admin account created with the default password; set admin_password or CAREERQUIZ_ADMIN_PASSWORD",
			"username", a.cfg.AdminUsername)
		return nil
	}
	a.log.InfoContext(ctx, "admin account created", "username", a.cfg.AdminUsername)
	return nil
}
