package cmd

import (
	"context"
	"errors"
	"io/ioutil"
	"log"
	"os"
	"testing"

	"storefront/pkg/rabbitmq"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	log.SetOutput(ioutil.Discard)
	os.Exit(m.Run())
}

type recordingCache struct {
	ids []uint
}

func (c *recordingCache) Invalidate(ctx context.Context, ids ...uint) {
	c.ids = append(c.ids, ids...)
}

const createdEvent = `{"orderId":7,"userId":3,"status":"PENDING","total":"27.99",` +
	`"items":[{"productId":4,"quantity":2},{"productId":9,"quantity":1}],"occurredAt":"2024-01-10T10:00:00Z"}`

func TestOrderEventHandler_InvalidatesProducts(t *testing.T) {
	cache := &recordingCache{}
	handle := orderEventHandler(context.Background(), cache, nil)

	err := handle(amqp.Delivery{RoutingKey: "order.created", Body: []byte(createdEvent)})

	assert.NoError(t, err)
	assert.Equal(t, []uint{4, 9}, cache.ids)
}

func TestOrderEventHandler_MalformedBodies(t *testing.T) {
	handle := orderEventHandler(context.Background(), &recordingCache{}, nil)

	for _, body := range []string{"not json", `{"status":"PENDING"}`} {
		err := handle(amqp.Delivery{Body: []byte(body)})
		assert.True(t, errors.Is(err, rabbitmq.ErrMalformed), body)
	}
}

func TestOrderEventHandler_WithoutCache(t *testing.T) {
	handle := orderEventHandler(context.Background(), nil, nil)
	assert.NoError(t, handle(amqp.Delivery{Body: []byte(createdEvent)}))
}

func TestOrderEventHandler_UnreachableRedisRequeues(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := &recordingCache{}
	handle := orderEventHandler(context.Background(), cache, rdb)

	assert.NoError(t, handle(amqp.Delivery{Body: []byte(createdEvent)}))
	mr.Close()
	err := handle(amqp.Delivery{Body: []byte(createdEvent)})

	assert.Error(t, err)
	assert.False(t, errors.Is(err, rabbitmq.ErrMalformed))
	assert.Equal(t, []uint{4, 9}, cache.ids)
}
