package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/zfogg/huddle/internal/config"
	"github.com/zfogg/huddle/internal/database"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/models"
	"github.com/zfogg/huddle/internal/seed"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var memory bool

func main() {
	root := &cobra.Command{
		Use:           "huddle-seed",
		Short:         "Populate a Huddle database with sample data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				fmt.Fprintln(os.Stderr, "Warning: .env file not found, using system environment variables")
			}
			return logger.Initialize(os.Getenv("LOG_LEVEL"), "")
		},
	}
	root.PersistentFlags().BoolVar(&memory, "memory", false, "seed a throwaway in-memory sqlite database (dry run)")

	root.AddCommand(
		&cobra.Command{
			Use:   "dev",
			Short: "Seed development database with realistic data",
			RunE: withSeeder(func(s *seed.Seeder) error {
				return s.SeedDev()
			}),
		},
		&cobra.Command{
			Use:   "test",
			Short: "Seed test database with alice, bob, charlie, diana and eve",
			RunE: withSeeder(func(s *seed.Seeder) error {
				return s.SeedTest()
			}),
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove all rows (use with caution)",
			RunE: withSeeder(func(s *seed.Seeder) error {
				return s.Clean()
			}),
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	_ = logger.Close()
}

func withSeeder(run func(*seed.Seeder) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		db, err := open()
		if err != nil {
			return err
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}()

		logger.Log.Info("Seeding", zap.String("command", cmd.Name()), zap.Bool("memory", memory))
		if err := run(seed.NewSeeder(db)); err != nil {
			return err
		}
		report(db)
		return nil
	}
}

func open() (*gorm.DB, error) {
	if memory {
		return database.OpenMemory("huddle-seed")
	}

	driver, dsn := config.DatabaseFromEnv()
	db, err := database.Open(driver, dsn, false)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func report(db *gorm.DB) {
	tables := []struct {
		name  string
		model interface{}
	}{
		{"users", &models.User{}},
		{"follows", &models.Follow{}},
		{"posts", &models.Post{}},
		{"likes", &models.PostLike{}},
		{"comments", &models.Comment{}},
		{"replies", &models.Reply{}},
		{"notifications", &models.Notification{}},
		{"chat_messages", &models.ChatMessage{}},
	}
	for _, t := range tables {
		var n int64
		db.Model(t.model).Count(&n)
		fmt.Printf("%-14s %d\n", t.name, n)
	}
}
