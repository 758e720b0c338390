package db

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/atelier-lumen/storefront/internal/cache"
	"github.com/atelier-lumen/storefront/internal/inventory"
)

// CachedItemRepository adds a read-through Redis cache in front of the
// item repository. Any stock mutation invalidates the affected keys so
// storefront reads never show stale inventory for long.
type CachedItemRepository struct {
	repo  *ItemRepository
	cache *cache.RedisCache
}

func NewCachedItemRepository(repo *ItemRepository, cache *cache.RedisCache) *CachedItemRepository {
	return &CachedItemRepository{
		repo:  repo,
		cache: cache,
	}
}

// Cache key helpers
func ItemKey(id string) string {
	return fmt.Sprintf("item:%s", id)
}

func AllItemsKey() string {
	return "items:all"
}

// GetItem returns a single item (with caching).
func (r *CachedItemRepository) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	cacheKey := ItemKey(id)

	var item inventory.Item
	err := r.cache.Get(ctx, cacheKey, &item)
	if err == nil {
		return &item, nil
	}
	if err != redis.Nil {
		log.Printf("⚠️ Cache error: %v", err)
	}

	it, err := r.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, nil
	}

	if err := r.cache.Set(ctx, cacheKey, it); err != nil {
		log.Printf("⚠️ Failed to cache item: %v", err)
	}
	return it, nil
}

// SearchItems lists/searches the catalog. Only the unfiltered listing is
// cached; query results go straight to the store.
func (r *CachedItemRepository) SearchItems(ctx context.Context, q string) ([]inventory.Item, error) {
	if q != "" {
		return r.repo.SearchItems(ctx, q)
	}

	cacheKey := AllItemsKey()
	var items []inventory.Item
	if err := r.cache.Get(ctx, cacheKey, &items); err == nil {
		return items, nil
	}

	items, err := r.repo.SearchItems(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, cacheKey, items); err != nil {
		log.Printf("⚠️ Failed to cache items: %v", err)
	}
	return items, nil
}

// CreateItem inserts a new item and invalidates the listing cache.
func (r *CachedItemRepository) CreateItem(ctx context.Context, item *inventory.Item) error {
	if err := r.repo.CreateItem(ctx, item); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, AllItemsKey()); err != nil {
		log.Printf("⚠️ Failed to invalidate cache: %v", err)
	}
	return nil
}

// ReserveStock delegates to the atomic conditional decrement and drops the
// cached copies of the mutated item.
func (r *CachedItemRepository) ReserveStock(ctx context.Context, id string, qty int) (int, error) {
	newStock, err := r.repo.ReserveStock(ctx, id, qty)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, id)
	return newStock, nil
}

// RestoreStock delegates to the store and drops cached copies.
func (r *CachedItemRepository) RestoreStock(ctx context.Context, id string, qty int) error {
	if err := r.repo.RestoreStock(ctx, id, qty); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedItemRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, ItemKey(id)); err != nil {
		log.Printf("⚠️ Failed to invalidate cache: %v", err)
	}
	if err := r.cache.Delete(ctx, AllItemsKey()); err != nil {
		log.Printf("⚠️ Failed to invalidate cache: %v", err)
	}
}
