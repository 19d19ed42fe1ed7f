package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/noah-isme/incident-api/internal/config"
	"github.com/noah-isme/incident-api/internal/database"
	"github.com/noah-isme/incident-api/internal/repository"
	"github.com/noah-isme/incident-api/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "incidentctl",
	Short: "Maintenance tasks for the incident API",
}

var (
	adminUsername string
	adminPassword string
)

func main() {
	adminCmd.PersistentFlags().StringVar(&adminUsername, "username", "", "admin username")
	adminCmd.PersistentFlags().StringVar(&adminPassword, "password", "", "admin password (defaults to INCIDENT_ADMIN_PASSWORD)")
	adminCmd.AddCommand(adminCreateCmd)
	adminCmd.AddCommand(adminPasswdCmd)

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		db := mustConnect(cfg)

		if err := database.Migrate(db); err != nil {
			log.Fatalf("Error migrating database: %v", err)
		}
		fmt.Println("Migrations applied")
	},
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new admin account",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		auth := newAuthService(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		user, err := auth.CreateAdmin(ctx, adminUsername, passwordOrEnv(cfg))
		if err != nil {
			log.Fatalf("Error creating admin: %v", err)
		}
		fmt.Printf("Created admin %q (id %d)\n", user.Username, user.ID)
	},
}

var adminPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Reset the password of an admin account",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		auth := newAuthService(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := auth.ResetPassword(ctx, adminUsername, passwordOrEnv(cfg)); err != nil {
			log.Fatalf("Error resetting password: %v", err)
		}
		fmt.Printf("Password updated for %q\n", adminUsername)
	},
}

func mustLoadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

func mustConnect(cfg config.Config) *gorm.DB {
	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL, newLogger())
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	return db
}

func newAuthService(cfg config.Config) service.AuthService {
	db := mustConnect(cfg)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}

	tokens, err := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.Fatalf("Error creating token service: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return service.NewAuthService(repository.NewUserRepository(db), tokens, validate, newLogger())
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func passwordOrEnv(cfg config.Config) string {
	if adminPassword != "" {
		return adminPassword
	}
	return cfg.AdminPassword
}
