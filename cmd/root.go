// Package cmd implements the picrate command line interface.
package cmd

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/picrate/picrate/config"
	"github.com/picrate/picrate/database"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "picrate",
	Short: "Single-user web tool for rating a folder of images",
	Long: `picrate serves a local web page for rating every image in a folder
on a 1..N scale, with a problem flag, bounded undo and resumable
progress. Annotations live in a SQLite database next to the images
and can be exported as a dataset.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; main delegates here.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("FATAL: %v", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config.yaml (default ./config.yaml)")
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
}

// loadConfig builds the effective configuration for a command run:
// defaults, config file, environment, then derived fields.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Finalize(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openDatabase opens the annotation database and runs migrations,
// returning both the GORM handle and the raw connection.
func openDatabase(cfg config.Config) (*gorm.DB, *sql.DB, error) {
	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if err := database.AutoMigrateModels(db); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	return db, sqlDB, nil
}
