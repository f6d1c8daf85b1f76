package cmd

import (
	"log"

	"storefront/internal/database"

	"github.com/spf13/cobra"
)

var seedOpts database.SeedOptions

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		log.Println("Migrations complete")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create an administrator and a sample catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db); err != nil {
			return err
		}
		if err := database.Seed(db, seedOpts); err != nil {
			return err
		}
		log.Println("Seeding complete")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.AdminUsername, "admin-user", "admin", "administrator username")
	seedCmd.Flags().StringVar(&seedOpts.AdminEmail, "admin-email", "admin@example.com", "administrator email")
	seedCmd.Flags().StringVar(&seedOpts.AdminPassword, "admin-password", "", "administrator password; no admin is created when empty")
}
