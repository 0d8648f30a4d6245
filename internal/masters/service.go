// Package masters serves the reference catalogs a request is priced from:
// video tiers, edit options, delivery methods and holder options.
package masters

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/match-video-api/internal/db"
	"github.com/noah-isme/match-video-api/internal/obs"
)

// CacheKey is the Redis key holding the serialised catalogs.
const CacheKey = "masters:all:v1"

type queryProvider interface {
	ListVideoTiers(ctx context.Context) ([]db.VideoTier, error)
	ListEditOptions(ctx context.Context) ([]db.EditOption, error)
	ListDeliveryMethods(ctx context.Context) ([]db.DeliveryMethod, error)
	ListHolderOptions(ctx context.Context) ([]db.HolderOption, error)
}

// Option is the public shape of a priced catalog entry.
type Option struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Description *string `json:"description,omitempty"`
}

// Delivery is a delivery method. ShippingPrice is omitted when the method
// ships nothing.
type Delivery struct {
	Option
	ShippingPrice *int64 `json:"shippingPrice,omitempty"`
}

// Catalog bundles the four master lists, each ordered by name.
type Catalog struct {
	VideoTiers      []Option   `json:"videoTiers"`
	EditOptions     []Option   `json:"editOptions"`
	DeliveryMethods []Delivery `json:"deliveryMethods"`
	HolderOptions   []Option   `json:"holderOptions"`
}

// Service loads catalogs from Postgres behind a Redis cache.
type Service struct {
	queries queryProvider
	cache   *Cache
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *Cache
	Logger  zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("masters: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, logger: cfg.Logger}, nil
}

// List returns every catalog. A cache failure degrades to a database read.
func (s *Service) List(ctx context.Context) (Catalog, error) {
	if s.cache != nil {
		var cached Catalog
		ok, err := s.cache.GetJSON(ctx, CacheKey, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("masters cache read failed")
		}
		if err == nil && ok {
			obs.ObserveMastersCache(true)
			return cached, nil
		}
		obs.ObserveMastersCache(false)
	}

	catalog, err := s.load(ctx)
	if err != nil {
		return Catalog{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, CacheKey, catalog); err != nil {
			s.logger.Warn().Err(err).Msg("masters cache write failed")
		}
	}
	return catalog, nil
}

// Invalidate drops the cached catalogs so the next List reads Postgres.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, CacheKey)
}

func (s *Service) load(ctx context.Context) (Catalog, error) {
	tiers, err := s.queries.ListVideoTiers(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list video tiers: %w", err)
	}
	edits, err := s.queries.ListEditOptions(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list edit options: %w", err)
	}
	deliveries, err := s.queries.ListDeliveryMethods(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list delivery methods: %w", err)
	}
	holders, err := s.queries.ListHolderOptions(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list holder options: %w", err)
	}

	out := Catalog{
		VideoTiers:      make([]Option, 0, len(tiers)),
		EditOptions:     make([]Option, 0, len(edits)),
		DeliveryMethods: make([]Delivery, 0, len(deliveries)),
		HolderOptions:   make([]Option, 0, len(holders)),
	}
	for _, row := range tiers {
		out.VideoTiers = append(out.VideoTiers, Option{
			ID:          db.UUIDString(row.ID),
			Name:        row.Name,
			Price:       row.Price,
			Description: db.TextPtr(row.Description),
		})
	}
	for _, row := range edits {
		out.EditOptions = append(out.EditOptions, Option{
			ID:          db.UUIDString(row.ID),
			Name:        row.Name,
			Price:       row.Price,
			Description: db.TextPtr(row.Description),
		})
	}
	for _, row := range deliveries {
		out.DeliveryMethods = append(out.DeliveryMethods, Delivery{
			Option: Option{
				ID:          db.UUIDString(row.ID),
				Name:        row.Name,
				Price:       row.Price,
				Description: db.TextPtr(row.Description),
			},
			ShippingPrice: db.Int8Ptr(row.ShippingPrice),
		})
	}
	for _, row := range holders {
		out.HolderOptions = append(out.HolderOptions, Option{
			ID:          db.UUIDString(row.ID),
			Name:        row.Name,
			Price:       row.Price,
			Description: db.TextPtr(row.Description),
		})
	}
	return out, nil
}
