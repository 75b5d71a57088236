package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/featureflags"
)

// flakyRepo wraps the in-memory repository and fails List on demand.
type flakyRepo struct {
	*featureflags.InMemoryRepository
	listErr error
	lists   int
}

func (r *flakyRepo) List(ctx context.Context) ([]featureflags.Flag, error) {
	r.lists++
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.InMemoryRepository.List(ctx)
}

func newService(repo featureflags.Repository, ttl time.Duration) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   ttl,
	})
}

func update(key string, value interface{}) featureflags.FlagUpdateRequest {
	return featureflags.FlagUpdateRequest{Updates: []featureflags.FlagUpdate{{Key: key, Value: value}}}
}

func TestService_Defaults(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), time.Minute)
	ctx := context.Background()

	assert.False(t, svc.IsAdvisoryDisabled(ctx))
	assert.False(t, svc.IsLiveFeedDisabled(ctx))
	assert.Equal(t, featureflags.DefaultAdvisoryCandidateLimit, svc.AdvisoryCandidateLimit(ctx))
	assert.Empty(t, svc.ActiveDegradations(ctx))

	f := svc.Get(ctx, featureflags.FlagDisableAdvisory)
	require.NotNil(t, f)
	assert.True(t, f.IsDefault)
	assert.NotEmpty(t, f.Description)

	assert.Nil(t, svc.Get(ctx, "no_such_flag"))
}

func TestService_List(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), time.Minute)

	list := svc.List(context.Background())

	require.Len(t, list.Items, len(featureflags.Definitions()))
	for i := 1; i < len(list.Items); i++ {
		assert.Less(t, list.Items[i-1].Key, list.Items[i].Key)
	}
}

func TestService_Update(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), time.Minute)
	ctx := context.Background()

	// Warm the cache so the update has to invalidate it.
	require.False(t, svc.IsAdvisoryDisabled(ctx))

	list, err := svc.Update(ctx, featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{
			{Key: featureflags.FlagDisableAdvisory, Value: true},
			{Key: featureflags.FlagAdvisoryCandidateLimit, Value: 3},
		},
		Reason: "advisory latency incident",
	}, "drv_1")

	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.False(t, list.Items[0].IsDefault)
	assert.Equal(t, float64(3), list.Items[1].Value)

	assert.True(t, svc.IsAdvisoryDisabled(ctx))
	assert.Equal(t, 3, svc.AdvisoryCandidateLimit(ctx))
	assert.Equal(t, []string{featureflags.FlagDisableAdvisory}, svc.ActiveDegradations(ctx))
}

func TestService_UpdateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		update  featureflags.FlagUpdate
		wantErr error
	}{
		{"unknown key", featureflags.FlagUpdate{Key: "routing_bike_only", Value: true}, featureflags.ErrUnknownFlag},
		{"bool as string", featureflags.FlagUpdate{Key: featureflags.FlagDisableLiveFeed, Value: "true"}, featureflags.ErrInvalidFlagValue},
		{"int as bool", featureflags.FlagUpdate{Key: featureflags.FlagAdvisoryCandidateLimit, Value: true}, featureflags.ErrInvalidFlagValue},
		{"zero limit", featureflags.FlagUpdate{Key: featureflags.FlagAdvisoryCandidateLimit, Value: 0.0}, featureflags.ErrInvalidFlagValue},
		{"fractional limit", featureflags.FlagUpdate{Key: featureflags.FlagAdvisoryCandidateLimit, Value: 2.5}, featureflags.ErrInvalidFlagValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := featureflags.NewInMemoryRepository()
			svc := newService(repo, time.Minute)

			_, err := svc.Update(context.Background(), featureflags.FlagUpdateRequest{
				Updates: []featureflags.FlagUpdate{
					{Key: featureflags.FlagDisableAdvisory, Value: true},
					tt.update,
				},
			}, "drv_1")

			assert.ErrorIs(t, err, tt.wantErr)
			stored, _ := repo.List(context.Background())
			assert.Empty(t, stored, "a rejected batch must not be partially applied")
		})
	}
}

func TestService_Reset(t *testing.T) {
	svc := newService(featureflags.NewInMemoryRepository(), time.Minute)
	ctx := context.Background()

	_, err := svc.Update(ctx, update(featureflags.FlagDisableLiveFeed, true), "drv_1")
	require.NoError(t, err)
	require.True(t, svc.IsLiveFeedDisabled(ctx))

	require.NoError(t, svc.Reset(ctx, featureflags.FlagDisableLiveFeed, "drv_1"))
	assert.False(t, svc.IsLiveFeedDisabled(ctx))

	// Resetting again is a no-op.
	assert.NoError(t, svc.Reset(ctx, featureflags.FlagDisableLiveFeed, "drv_1"))
	assert.ErrorIs(t, svc.Reset(ctx, "no_such_flag", "drv_1"), featureflags.ErrUnknownFlag)
}

func TestService_CachesSnapshot(t *testing.T) {
	repo := &flakyRepo{InMemoryRepository: featureflags.NewInMemoryRepository()}
	svc := newService(repo, time.Minute)
	ctx := context.Background()

	svc.IsAdvisoryDisabled(ctx)
	svc.IsLiveFeedDisabled(ctx)
	svc.AdvisoryCandidateLimit(ctx)
	assert.Equal(t, 1, repo.lists)

	// Writes that bypass the service are only seen after invalidation.
	require.NoError(t, repo.Upsert(ctx, []featureflags.Flag{{Key: featureflags.FlagDisableAdvisory, Value: true}}))
	assert.False(t, svc.IsAdvisoryDisabled(ctx))

	svc.Invalidate()
	assert.True(t, svc.IsAdvisoryDisabled(ctx))
	assert.Equal(t, 2, repo.lists)
}

func TestService_KeepsStaleSnapshotOnError(t *testing.T) {
	repo := &flakyRepo{InMemoryRepository: featureflags.NewInMemoryRepository()}
	svc := newService(repo, time.Millisecond)
	ctx := context.Background()

	_, err := svc.Update(ctx, update(featureflags.FlagDisableAdvisory, true), "drv_1")
	require.NoError(t, err)
	require.True(t, svc.IsAdvisoryDisabled(ctx))

	repo.listErr = errors.New("connection reset")
	time.Sleep(5 * time.Millisecond)

	assert.True(t, svc.IsAdvisoryDisabled(ctx))
}

func TestService_DefaultsWhenRepositoryDown(t *testing.T) {
	repo := &flakyRepo{
		InMemoryRepository: featureflags.NewInMemoryRepository(),
		listErr:            errors.New("connection refused"),
	}
	svc := newService(repo, time.Minute)
	ctx := context.Background()

	assert.False(t, svc.IsAdvisoryDisabled(ctx))
	assert.Equal(t, featureflags.DefaultAdvisoryCandidateLimit, svc.AdvisoryCandidateLimit(ctx))
}

func TestService_IgnoresRetiredOverrides(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	require.NoError(t, repo.Upsert(context.Background(), []featureflags.Flag{{Key: "legacy_switch", Value: true}}))
	svc := newService(repo, time.Minute)

	list := svc.List(context.Background())

	for _, f := range list.Items {
		assert.NotEqual(t, "legacy_switch", f.Key)
	}
}

func TestFlag_Accessors(t *testing.T) {
	var nilFlag *featureflags.Flag
	_, ok := nilFlag.Bool()
	assert.False(t, ok)
	_, ok = nilFlag.Int()
	assert.False(t, ok)

	v, ok := (&featureflags.Flag{Value: true}).Bool()
	assert.True(t, ok)
	assert.True(t, v)

	_, ok = (&featureflags.Flag{Value: "true"}).Bool()
	assert.False(t, ok)

	n, ok := (&featureflags.Flag{Value: float64(7)}).Int()
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = (&featureflags.Flag{Value: 5}).Int()
	assert.True(t, ok)
	assert.Equal(t, 5, n)
}

func TestInMemoryRepository_Delete(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	ctx := context.Background()

	assert.ErrorIs(t, repo.Delete(ctx, featureflags.FlagDisableAdvisory), featureflags.ErrFlagNotFound)

	require.NoError(t, repo.Upsert(ctx, []featureflags.Flag{{Key: featureflags.FlagDisableAdvisory, Value: true}}))
	require.NoError(t, repo.Delete(ctx, featureflags.FlagDisableAdvisory))

	flags, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, flags)
}
