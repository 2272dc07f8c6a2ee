package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-gateway/internal/models"
)

const catalogCacheKey = "catalog:courses"

type catalogAPI interface {
	FetchCourses(ctx context.Context, token string) ([]models.Course, error)
}

// CatalogService reads the course catalog through a short-lived shared cache.
type CatalogService struct {
	api    catalogAPI
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalogService constructs a catalog service. A nil cache disables caching.
func NewCatalogService(api catalogAPI, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CatalogService{api: api, cache: cache, ttl: ttl, logger: logger}
}

// Courses returns the catalog and whether it came from cache.
func (s *CatalogService) Courses(ctx context.Context, token string) ([]models.Course, bool, error) {
	var cached []models.Course
	if hit, err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil && hit {
		return cached, true, nil
	}

	courses, err := s.api.FetchCourses(ctx, token)
	if err != nil {
		return nil, false, upstreamError(err, "failed to fetch courses")
	}
	if courses == nil {
		courses = []models.Course{}
	}
	if err := s.cache.Set(ctx, catalogCacheKey, courses, s.ttl); err != nil {
		s.logger.Debug("catalog not cached", zap.Error(err))
	}
	return courses, false, nil
}

// Invalidate drops the cached catalog after a course was saved or deleted.
func (s *CatalogService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
