package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/citymesh/message-gateway/internal/config"
	"github.com/citymesh/message-gateway/internal/contact"
	"github.com/citymesh/message-gateway/internal/db"
	"github.com/citymesh/message-gateway/internal/delivery"
	httpSrv "github.com/citymesh/message-gateway/internal/http"
	"github.com/citymesh/message-gateway/internal/logger"
	"github.com/citymesh/message-gateway/internal/processor"
	"github.com/citymesh/message-gateway/internal/repository"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)

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

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

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

		server := httpSrv.NewServer(cfg, mysqlDB, redisClient, router)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Printf("signal received: %s, shutting down...", sig)
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
