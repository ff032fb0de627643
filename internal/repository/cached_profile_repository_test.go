package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

type stubProfileRepository struct {
	mock.Mock
}

func (m *stubProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *stubProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *stubProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

func newCachedRepo(t *testing.T, next ProfileRepository) *CachedProfileRepository {
	repo, err := NewCachedProfileRepository(next, time.Minute)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func TestCachedProfileRepository_ListServedFromCache(t *testing.T) {
	ctx := context.Background()
	next := new(stubProfileRepository)
	next.On("List", ctx).Return([]models.Profile{{ID: "u1", FullName: "Ana"}}, nil).Once()
	repo := newCachedRepo(t, next)

	first, err := repo.List(ctx)
	require.NoError(t, err)
	repo.Wait()

	second, err := repo.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	next.AssertNumberOfCalls(t, "List", 1)
}

func TestCachedProfileRepository_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	next := new(stubProfileRepository)
	next.On("List", ctx).Return([]models.Profile{{ID: "u1", FullName: "Ana"}}, nil).Once()
	repo := newCachedRepo(t, next)

	first, err := repo.List(ctx)
	require.NoError(t, err)
	repo.Wait()
	first[0].FullName = "changed"

	second, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana", second[0].FullName)
}

func TestCachedProfileRepository_UpsertInvalidates(t *testing.T) {
	ctx := context.Background()
	next := new(stubProfileRepository)
	profile := &models.Profile{ID: "u1", FullName: "Ana Putri"}
	next.On("List", ctx).Return([]models.Profile{{ID: "u1", FullName: "Ana"}}, nil).Once()
	next.On("Upsert", ctx, profile).Return(nil).Once()
	next.On("List", ctx).Return([]models.Profile{*profile}, nil).Once()
	repo := newCachedRepo(t, next)

	_, err := repo.List(ctx)
	require.NoError(t, err)
	repo.Wait()

	require.NoError(t, repo.Upsert(ctx, profile))

	profiles, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana Putri", profiles[0].FullName)
	next.AssertNumberOfCalls(t, "List", 2)
}

func TestCachedProfileRepository_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	next := new(stubProfileRepository)
	next.On("GetByID", ctx, "u1").Return(nil, ErrNotFound).Once()
	next.On("GetByID", ctx, "u1").Return(&models.Profile{ID: "u1"}, nil).Once()
	repo := newCachedRepo(t, next)

	_, err := repo.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	repo.Wait()

	profile, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
}

func TestCachedProfileRepository_UpsertFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	next := new(stubProfileRepository)
	profile := &models.Profile{ID: "u1"}
	next.On("Upsert", ctx, profile).Return(errors.New("db down"))
	repo := newCachedRepo(t, next)

	err := repo.Upsert(ctx, profile)
	assert.EqualError(t, err, "db down")
}

func TestCachedProfileRepository_RepeatedReadsHitCache(t *testing.T) {
	ctx := context.Background()
	next := new(stubProfileRepository)
	next.On("List", ctx).Return([]models.Profile{{ID: "u1"}, {ID: "u2"}}, nil)
	next.On("GetByID", ctx, "u1").Return(&models.Profile{ID: "u1", FullName: "Ana"}, nil)
	repo := newCachedRepo(t, next)

	for i := 0; i < 5; i++ {
		profiles, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Len(t, profiles, 2)

		profile, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ana", profile.FullName)

		repo.Wait()
	}

	next.AssertNumberOfCalls(t, "List", 1)
	next.AssertNumberOfCalls(t, "GetByID", 1)
}
