package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/database"
	"storefront/internal/metrics"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/streadway/amqp"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume order events until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker()
	},
}

func runWorker() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for the worker")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)
	rdb, err := openRedis(cfg)
	if err != nil {
		return err
	}
	var cache services.ProductCache
	if rdb != nil {
		defer rdb.Close()
		cache = repositories.NewCachedProductRepository(repositories.NewGORMProductRepository(db), rdb)
	}

	mq, err := openRabbitMQ(cfg)
	if err != nil {
		return err
	}
	defer mq.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done, err := mq.ConsumeOrderEvents(orderEventHandler(ctx, cache, rdb), func(o rabbitmq.Outcome) {
		metrics.RecordEvent(string(o))
	})
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		log.Println("Worker stopped")
	case <-done:
		log.Println("Consumer channel closed")
	}
	return nil
}

// orderEventHandler drops cached products touched by an order. rdb, when set,
// is pinged first so an unreachable cache requeues the event.
func orderEventHandler(ctx context.Context, cache services.ProductCache, rdb *redis.Client) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event services.OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("%w: %v", rabbitmq.ErrMalformed, err)
		}
		if event.OrderID == 0 {
			return fmt.Errorf("%w: missing orderId", rabbitmq.ErrMalformed)
		}
		log.Printf("Received %s for order %d (status %s)", msg.RoutingKey, event.OrderID, event.Status)

		if cache == nil {
			return nil
		}
		if rdb != nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				return fmt.Errorf("product cache unavailable: %w", err)
			}
		}
		cache.Invalidate(ctx, event.ProductIDs()...)
		return nil
	}
}
