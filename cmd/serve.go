package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/database"
	"storefront/internal/server"
	"storefront/internal/session"
	"storefront/internal/storage"

	"github.com/spf13/cobra"
)

const (
	shutdownTimeout      = 10 * time.Second
	sessionSweepInterval = 5 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
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

	disk, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	deps := server.Deps{Config: cfg, DB: db, Disk: disk}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := openRedis(cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		deps.Redis = rdb
		deps.Sessions = session.NewRedisStore(rdb)
	} else {
		log.Println("REDIS_ADDR not set; using in-memory sessions and no product cache")
		sessions := session.NewMemoryStore()
		sessions.StartSweeper(ctx, sessionSweepInterval)
		deps.Sessions = sessions
	}

	mq, err := openRabbitMQ(cfg)
	if err != nil {
		return err
	}
	if mq != nil {
		defer func() {
			if err := mq.Close(); err != nil {
				log.Printf("Error closing RabbitMQ client: %v", err)
			}
		}()
		deps.Publisher = mq
	} else {
		log.Println("RABBITMQ_URL not set; order events are disabled")
	}

	app := server.New(deps)

	log.Printf("Starting server on port %s", cfg.AppPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-quit:
	}
	log.Println("Shutting down server...")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
	return nil
}
