package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicqueue/internal/domain/entities"
	"github.com/zatekoja/clinicqueue/internal/domain/providers"
	"github.com/zatekoja/clinicqueue/internal/domain/repositories"
)

const rosterCacheKey = "clinic:roster"

func doctorCacheKey(id string) string {
	return fmt.Sprintf("clinic:doctor:%s", id)
}

// CachedDoctorRosterAdapter wraps a roster repository with a read-through cache
type CachedDoctorRosterAdapter struct {
	adapter    repositories.DoctorRosterRepository
	cache      providers.CacheProvider
	ttlSeconds int
}

// NewCachedDoctorRosterAdapter creates a new cached roster adapter
func NewCachedDoctorRosterAdapter(adapter repositories.DoctorRosterRepository, cache providers.CacheProvider, ttlSeconds int) repositories.DoctorRosterRepository {
	return &CachedDoctorRosterAdapter{
		adapter:    adapter,
		cache:      cache,
		ttlSeconds: ttlSeconds,
	}
}

// ListDoctors returns the cached roster, loading and caching it on a miss
func (a *CachedDoctorRosterAdapter) ListDoctors(ctx context.Context) ([]*entities.Doctor, error) {
	var doctors []*entities.Doctor
	if a.fromCache(ctx, rosterCacheKey, &doctors) {
		return doctors, nil
	}

	doctors, err := a.adapter.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}

	a.toCache(ctx, rosterCacheKey, doctors)
	return doctors, nil
}

// GetDoctor returns a cached doctor, loading and caching it on a miss
func (a *CachedDoctorRosterAdapter) GetDoctor(ctx context.Context, id string) (*entities.Doctor, error) {
	key := doctorCacheKey(id)

	var doctor entities.Doctor
	if a.fromCache(ctx, key, &doctor) {
		return &doctor, nil
	}

	found, err := a.adapter.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	a.toCache(ctx, key, found)
	return found, nil
}

// Invalidate drops the cached roster so the next read goes to the database
func (a *CachedDoctorRosterAdapter) Invalidate(ctx context.Context) error {
	return a.cache.Delete(ctx, rosterCacheKey)
}

func (a *CachedDoctorRosterAdapter) fromCache(ctx context.Context, key string, dest interface{}) bool {
	cached, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Str("key", key).Msg("Roster cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(cached, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached roster entry")
		return false
	}
	return true
}

// toCache is synchronous so the roster is cached before the registry is built
func (a *CachedDoctorRosterAdapter) toCache(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to marshal roster entry")
		return
	}
	if err := a.cache.Set(ctx, key, data, a.ttlSeconds); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache roster entry")
	}
}
