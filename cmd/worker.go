package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/socialnet/apiserver/config"
	"github.com/socialnet/apiserver/internal/events"
	"github.com/socialnet/apiserver/internal/logging"
	"github.com/socialnet/apiserver/internal/mq"
	"github.com/socialnet/apiserver/internal/services"
	"github.com/socialnet/apiserver/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume domain events and remove media of deleted posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log := logging.New(cfg.Log)
		defer func() {
			_ = log.Sync()
		}()
		ctx := cmd.Context()

		if cfg.MQ.Backend == config.MQNone || cfg.MQ.Backend == config.MQMemory {
			return fmt.Errorf("worker needs a broker, MQ_BACKEND is %q", cfg.MQ.Backend)
		}

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return fmt.Errorf("open mq: %w", err)
		}
		defer func() {
			_ = queue.Close()
		}()

		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}

		cleaner := events.NewMediaCleaner(services.NewMediaService(objects, cfg.Storage.Folder), log)
		log.Info("worker consuming", zap.String("channel", events.Channel), zap.String("backend", cfg.MQ.Backend))

		err = queue.Subscribe(ctx, events.Channel, cleaner.Handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			log.Error("worker stopped", zap.Error(err))
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
