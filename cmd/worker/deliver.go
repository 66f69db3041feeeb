package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/contact"
	"github.com/citymesh/message-gateway/internal/db"
	"github.com/citymesh/message-gateway/internal/delivery"
	"github.com/citymesh/message-gateway/internal/kafka"
	"github.com/citymesh/message-gateway/internal/logger"
	"github.com/citymesh/message-gateway/internal/metrics"
	"github.com/citymesh/message-gateway/internal/model"
	"github.com/citymesh/message-gateway/internal/processor"
	"github.com/citymesh/message-gateway/internal/repository"
	"github.com/citymesh/message-gateway/internal/worker"
)

var deliverCmd = &cobra.Command{
	Use:   "deliver",
	Short: "Run the delivery worker (consumes delivery events)",
	RunE:  runDeliver,
}

func runDeliver(cmd *cobra.Command, args []string) error {
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

	store := repository.NewDeliveryStore(
		mysqlDB,
		repository.NewMessagesRepository(mysqlDB),
		repository.NewHistoryRepository(mysqlDB),
		repository.NewOutboxRepository(mysqlDB),
	)

	procs, err := processor.BuildSet(cfg.Channels, store, logger.Log)
	if err != nil {
		return fmt.Errorf("build processors: %w", err)
	}

	generic := delivery.NewGeneric(
		contact.NewHTTPResolver(cfg.Contact),
		store,
		procs,
		cfg.Message,
		logger.Log,
	)
	router := delivery.NewRouter(store, procs, generic, cfg.Message, logger.Log)

	// one topic per channel, MESSAGE included
	topics := []string{
		model.TypeSMS.Topic(),
		model.TypeEmail.Topic(),
		model.TypeDigitalMail.Topic(),
		model.TypeWebMessage.Topic(),
		model.TypeSnailMail.Topic(),
		model.TypeLetter.Topic(),
		model.TypeSlack.Topic(),
		model.TypeDigitalInvoice.Topic(),
		model.TypeMessage.Topic(),
	}

	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "msggw-deliver"
	}

	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topics:         topics,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewDeliver(consumer, store, router, cfg.Worker.MaxInFlight, logger.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Sugar().Infof("delivery worker started group=%s max_in_flight=%d", groupID, w.MaxInFlight)

	return w.Run(ctx)
}
