package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/socialnet/apiserver/config"
	"github.com/socialnet/apiserver/internal/db"
	"github.com/socialnet/apiserver/internal/logging"
	"github.com/socialnet/apiserver/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrationsSource string

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations to Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if err := db.MigrateUp(db.PostgresURL(cfg.Database), migrationsSource); err != nil {
			return err
		}
		logging.New(cfg.Log).Info("migrations applied", zap.String("database", cfg.Database.DBName))
		return nil
	},
}

var migrateIndexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create MongoDB indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return fmt.Errorf("open mongo: %w", err)
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()

		if err := store.EnsureMongoIndexes(ctx, database); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
		logging.New(cfg.Log).Info("indexes created", zap.String("database", cfg.Mongo.Database))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateIndexesCmd)

	migrateUpCmd.Flags().StringVar(&migrationsSource, "source", "", "golang-migrate source URL (default: embedded migrations)")
}
