package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

// DefaultProfileCacheTTL bounds how stale the cached profile directory can get
const DefaultProfileCacheTTL = time.Minute

const allProfilesKey = "profiles:all"

// CachedProfileRepository serves profile reads from an in-memory cache and
// invalidates it on writes
type CachedProfileRepository struct {
	next ProfileRepository
	ttl  time.Duration
	list *ristretto.Cache[string, []models.Profile]
	byID *ristretto.Cache[string, models.Profile]
}

// NewCachedProfileRepository wraps next with a ristretto cache
func NewCachedProfileRepository(next ProfileRepository, ttl time.Duration) (*CachedProfileRepository, error) {
	if ttl <= 0 {
		ttl = DefaultProfileCacheTTL
	}

	list, err := ristretto.NewCache(&ristretto.Config[string, []models.Profile]{
		NumCounters:        100,
		MaxCost:            10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile list cache: %w", err)
	}

	byID, err := ristretto.NewCache(&ristretto.Config[string, models.Profile]{
		NumCounters:        100_000,
		MaxCost:            10_000,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		list.Close()
		return nil, fmt.Errorf("failed to create profile cache: %w", err)
	}

	return &CachedProfileRepository{next: next, ttl: ttl, list: list, byID: byID}, nil
}

// Upsert writes through and drops the cached copies
func (r *CachedProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	if err := r.next.Upsert(ctx, profile); err != nil {
		return err
	}
	r.list.Del(allProfilesKey)
	r.byID.Del(profile.ID)
	return nil
}

func (r *CachedProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if cached, ok := r.byID.Get(id); ok {
		return &cached, nil
	}
	profile, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.byID.SetWithTTL(id, *profile, 1, r.ttl)
	return profile, nil
}

func (r *CachedProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	if cached, ok := r.list.Get(allProfilesKey); ok {
		return append([]models.Profile(nil), cached...), nil
	}
	profiles, err := r.next.List(ctx)
	if err != nil {
		return nil, err
	}
	r.list.SetWithTTL(allProfilesKey, profiles, 1, r.ttl)
	return append([]models.Profile(nil), profiles...), nil
}

// Wait blocks until buffered cache writes are applied
func (r *CachedProfileRepository) Wait() {
	r.list.Wait()
	r.byID.Wait()
}

// Close releases the cache goroutines
func (r *CachedProfileRepository) Close() {
	r.list.Close()
	r.byID.Close()
}
