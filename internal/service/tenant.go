package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nimbusdeck/edge/internal/models"
)

const configCacheTTL = 5 * time.Minute

// TenantStore is the persistence surface TenantService needs. Satisfied by
// repository.TenantRepository.
type TenantStore interface {
	Create(ctx context.Context, cfg *models.TenantConfig) error
	FindBySlug(ctx context.Context, slug string) (*models.TenantConfig, error)
	FindByID(ctx context.Context, id string) (*models.TenantConfig, error)
	List(ctx context.Context) ([]models.TenantConfig, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// ConfigCache is the key/value surface the config cache needs. Satisfied by
// storage.RedisClient.
type ConfigCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// TenantService owns tenant configs: the control plane writes through it,
// the dispatcher reads through its redis cache. Cached entries go stale for
// at most configCacheTTL after an out-of-band change; mutations through this
// service evict eagerly.
type TenantService struct {
	repository TenantStore
	redis      ConfigCache
}

func NewTenantService(repo TenantStore, redis ConfigCache) *TenantService {
	return &TenantService{
		repository: repo,
		redis:      redis,
	}
}

// isUUID guards the raw-id lookup path: project_id is a uuid column, and
// binding a non-uuid string to it is a postgres type error, not an empty
// result.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func slugCacheKey(slug string) string {
	return fmt.Sprintf("tenant:config:slug:%s", slug)
}

func idCacheKey(id string) string {
	return fmt.Sprintf("tenant:config:id:%s", id)
}

// Resolve looks the routing key up as a slug first, then as a raw project id.
// Returns ErrTenantNotFound when neither matches.
func (s *TenantService) Resolve(ctx context.Context, key string) (*models.TenantConfig, error) {
	if cfg := s.cached(ctx, slugCacheKey(key)); cfg != nil {
		return cfg, nil
	}
	if cfg := s.cached(ctx, idCacheKey(key)); cfg != nil {
		return cfg, nil
	}

	cfg, err := s.repository.FindBySlug(ctx, key)
	if err != nil {
		return nil, err
	}
	if cfg == nil && isUUID(key) {
		cfg, err = s.repository.FindByID(ctx, key)
		if err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		return nil, ErrTenantNotFound
	}

	s.cache(ctx, cfg)
	return cfg, nil
}

func (s *TenantService) cached(ctx context.Context, key string) *models.TenantConfig {
	data, err := s.redis.Get(ctx, key)
	if err != nil || data == "" {
		return nil
	}

	var cfg models.TenantConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil
	}
	return &cfg
}

func (s *TenantService) cache(ctx context.Context, cfg *models.TenantConfig) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	s.redis.Set(ctx, slugCacheKey(cfg.Slug), data, configCacheTTL)
	s.redis.Set(ctx, idCacheKey(cfg.ProjectID.String()), data, configCacheTTL)
}

func (s *TenantService) evict(ctx context.Context, cfg *models.TenantConfig) {
	s.redis.Del(ctx, slugCacheKey(cfg.Slug), idCacheKey(cfg.ProjectID.String()))
}

func (s *TenantService) Create(ctx context.Context, orgID, slug, workerRef, tier string, requestsPerMinute int) (*models.TenantConfig, error) {
	existing, err := s.repository.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSlugTaken
	}

	cfg := &models.TenantConfig{
		OrgID:             orgID,
		Slug:              slug,
		WorkerRef:         workerRef,
		Status:            models.StatusProvisioning,
		Tier:              tier,
		RequestsPerMinute: requestsPerMinute,
	}

	if err := s.repository.Create(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to create tenant config: %w", err)
	}

	return cfg, nil
}

func (s *TenantService) Get(ctx context.Context, id string) (*models.TenantConfig, error) {
	if !isUUID(id) {
		return nil, ErrTenantNotFound
	}

	cfg, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrTenantNotFound
	}
	return cfg, nil
}

func (s *TenantService) List(ctx context.Context) ([]models.TenantConfig, error) {
	return s.repository.List(ctx)
}

func (s *TenantService) Update(ctx context.Context, id string, updates map[string]interface{}) (*models.TenantConfig, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repository.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("failed to update tenant config: %w", err)
	}

	s.evict(ctx, cfg)
	return s.Get(ctx, id)
}

func (s *TenantService) Delete(ctx context.Context, id string) error {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tenant config: %w", err)
	}

	s.evict(ctx, cfg)
	return nil
}
