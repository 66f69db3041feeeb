package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/db"
	"github.com/citymesh/message-gateway/internal/kafka"
	"github.com/citymesh/message-gateway/internal/logger"
	"github.com/citymesh/message-gateway/internal/metrics"
	"github.com/citymesh/message-gateway/internal/repository"
	"github.com/citymesh/message-gateway/internal/worker"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the outbox relay (publishes delivery events to Kafka)",
	RunE:  runRelay,
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Level)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer mysqlDB.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	r := worker.NewRelay(
		repository.NewOutboxRepository(mysqlDB),
		producer,
		cfg.Relay.BatchSize,
		cfg.Relay.PollInterval,
		logger.Log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Sugar().Infof("outbox relay started batch=%d interval=%s", r.BatchSize, r.PollInterval)

	return r.Run(ctx)
}
