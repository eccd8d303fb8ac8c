package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/order-tagger/internal/config"
	"github.com/spec-kit/order-tagger/internal/persistence"
	"github.com/spec-kit/order-tagger/internal/repository"
	"github.com/spec-kit/order-tagger/internal/service"
)

var (
	newUsername string
	newPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage dashboard accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Provision a dashboard account in postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required to provision accounts")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, zap.NewNop())
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), zap.NewNop()); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}

		return runUserAdd(ctx, cmd.OutOrStdout(), repository.NewUserRepository(pg.PoolHandle()), cfg.Auth, newUsername, newPassword)
	},
}

func init() {
	userAddCmd.Flags().StringVar(&newUsername, "username", "", "Account username")
	userAddCmd.Flags().StringVar(&newPassword, "password", "", "Account password")
	_ = userAddCmd.MarkFlagRequired("username")
	_ = userAddCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(ctx context.Context, w io.Writer, users repository.UserRepository, cfg config.AuthConfig, username, password string) error {
	authService := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: users})
	user, err := authService.CreateUser(ctx, username, password)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(w, map[string]any{"id": user.ID, "username": user.Username})
	}
	_, err = fmt.Fprintf(w, "created user %q with id %d\n", user.Username, user.ID)
	return err
}
