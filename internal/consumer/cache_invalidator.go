package consumer

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/atelier-lumen/storefront/internal/cache"
	"github.com/atelier-lumen/storefront/internal/db"
	"github.com/atelier-lumen/storefront/internal/publisher"
)

// CacheInvalidator drops cached catalog entries when an order consumes
// stock, so other storefront instances sharing the cache see fresh
// inventory. Stock itself is already decremented synchronously at
// checkout; this consumer only maintains the cache.
type CacheInvalidator struct {
	cache *cache.RedisCache
}

func NewCacheInvalidator(cache *cache.RedisCache) *CacheInvalidator {
	return &CacheInvalidator{cache: cache}
}

// ProcessOrderCreated handles order.created events.
func (c *CacheInvalidator) ProcessOrderCreated(messages <-chan amqp.Delivery) {
	ctx := context.Background()

	for msg := range messages {
		var event publisher.OrderCreatedEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			log.Printf("❌ Failed to parse event: %v", err)
			msg.Nack(false, false) // Don't requeue bad messages
			continue
		}

		for _, line := range event.Items {
			if err := c.cache.Delete(ctx, db.ItemKey(line.ItemID)); err != nil {
				log.Printf("⚠️ Failed to invalidate item %s: %v", line.ItemID, err)
			}
		}
		if err := c.cache.Delete(ctx, db.AllItemsKey()); err != nil {
			log.Printf("⚠️ Failed to invalidate item listing: %v", err)
		}

		msg.Ack(false)
	}
}
