package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ecommerce-backend/internal/apperr"
	"ecommerce-backend/internal/entity"
	"ecommerce-backend/internal/repository"
)

const productCacheTTL = 1 * time.Minute

type ProductService struct {
	productRepo *repository.ProductRepository
	rdb         *redis.Client
}

func NewProductService(productRepo *repository.ProductRepository, rdb *redis.Client) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		rdb:         rdb,
	}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (p *ProductService) List(ctx context.Context) ([]*entity.Product, error) {
	products, err := p.productRepo.GetProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting products")
		return nil, err
	}
	return products, nil
}

func (p *ProductService) Get(ctx context.Context, id int64) (*entity.Product, error) {
	cached, err := p.rdb.Get(ctx, productCacheKey(id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error().Err(err).Int64("product_id", id).Msg("Error reading product cache")
	}
	if cached != "" {
		product := &entity.Product{}
		if err := json.Unmarshal([]byte(cached), product); err == nil {
			return product, nil
		}
	}

	product, err := p.productRepo.GetProductByID(ctx, id)
	if err != nil {
		logger.Error().Err(err).Int64("product_id", id).Msg("Error getting product by ID")
		return nil, err
	}
	if product == nil {
		return nil, apperr.ErrProductNotFound
	}

	p.cacheProduct(ctx, product)
	return product, nil
}

// FindByIDs resolves an id set for order creation: cached entries first,
// then one batch query for the misses. Ids unknown to the catalog are
// absent from the result; the caller decides what that means.
func (p *ProductService) FindByIDs(ctx context.Context, ids []int64) ([]*entity.Product, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCacheKey(id)
	}

	var products []*entity.Product
	var misses []int64

	cached, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Error().Err(err).Msg("Error reading product cache")
		misses = ids
	} else {
		for i, raw := range cached {
			s, ok := raw.(string)
			if !ok {
				misses = append(misses, ids[i])
				continue
			}
			product := &entity.Product{}
			if err := json.Unmarshal([]byte(s), product); err != nil {
				misses = append(misses, ids[i])
				continue
			}
			products = append(products, product)
		}
	}

	if len(misses) > 0 {
		fromDB, err := p.productRepo.FindByIDs(ctx, misses)
		if err != nil {
			logger.Error().Err(err).Msg("Error resolving products")
			return nil, err
		}
		for _, product := range fromDB {
			p.cacheProduct(ctx, product)
		}
		products = append(products, fromDB...)
	}

	return products, nil
}

// PreWarmCacheAsync pre-warms the cache with product data in the background.
func (p *ProductService) PreWarmCacheAsync(ctx context.Context) error {
	products, err := p.productRepo.GetProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting products")
		return err
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, product := range products {
			p.cacheProduct(ctx, product)
		}
	}()

	return nil
}

// Seed populates the catalog on first start so the storefront is usable
// out of the box.
func (p *ProductService) Seed(ctx context.Context) error {
	count, err := p.productRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []*entity.Product{
		{Name: "Wireless Headphones", Description: "Over-ear wireless headphones with noise cancellation", Price: 19900, Currency: "usd", ImageURL: "https://images.example.com/headphones.jpg"},
		{Name: "Mechanical Keyboard", Description: "87-key mechanical keyboard with hot-swappable switches", Price: 12900, Currency: "usd", ImageURL: "https://images.example.com/keyboard.jpg"},
		{Name: "USB-C Hub", Description: "7-in-1 USB-C hub with HDMI and card reader", Price: 4900, Currency: "usd", ImageURL: "https://images.example.com/hub.jpg"},
		{Name: "Laptop Stand", Description: "Adjustable aluminium laptop stand", Price: 3900, Currency: "usd", ImageURL: "https://images.example.com/stand.jpg"},
		{Name: "Webcam", Description: "1080p webcam with built-in microphone", Price: 6900, Currency: "usd", ImageURL: "https://images.example.com/webcam.jpg"},
	}
	for _, product := range seed {
		if _, err := p.productRepo.CreateProduct(ctx, product); err != nil {
			return err
		}
	}

	logger.Info().Int("count", len(seed)).Msg("Seeded product catalog")
	return nil
}

func (p *ProductService) cacheProduct(ctx context.Context, product *entity.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := p.rdb.Set(ctx, productCacheKey(product.ID), data, productCacheTTL).Err(); err != nil {
		logger.Error().Err(err).Int64("product_id", product.ID).Msg("Error setting product in cache")
	}
}
