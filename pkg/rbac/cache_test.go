package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEvaluator counts calls so tests can observe cache behavior.
type fakeEvaluator struct {
	calls  int
	answer bool
}

func (f *fakeEvaluator) HasRoleInOrganization(ctx context.Context, userID, orgID int64, role Role) (bool, error) {
	f.calls++
	return f.answer, nil
}

func (f *fakeEvaluator) HasRoleAnywhere(ctx context.Context, userID int64, role Role) (bool, error) {
	f.calls++
	return f.answer, nil
}

func (f *fakeEvaluator) CanAccessOrganization(ctx context.Context, userID, orgID int64) (bool, error) {
	f.calls++
	return f.answer, nil
}

func (f *fakeEvaluator) OrganizationsWithRole(ctx context.Context, userID int64, role Role) ([]int64, error) {
	f.calls++
	return nil, nil
}

func TestCachingEvaluator_MemoizesAnswers(t *testing.T) {
	inner := &fakeEvaluator{answer: true}
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_hits"})
	misses := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_misses"})
	eval := NewCachingEvaluator(inner, time.Minute, hits, misses)

	for i := 0; i < 3; i++ {
		ok, err := eval.HasRoleInOrganization(context.Background(), 7, 3, RoleOwner)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, float64(2), testutil.ToFloat64(hits))
	assert.Equal(t, float64(1), testutil.ToFloat64(misses))
}

func TestCachingEvaluator_NegativeAnswersCachedToo(t *testing.T) {
	inner := &fakeEvaluator{answer: false}
	eval := NewCachingEvaluator(inner, time.Minute, nil, nil)

	for i := 0; i < 2; i++ {
		ok, err := eval.HasRoleAnywhere(context.Background(), 7, RoleOwner)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachingEvaluator_KeysAreDistinct(t *testing.T) {
	inner := &fakeEvaluator{answer: true}
	eval := NewCachingEvaluator(inner, time.Minute, nil, nil)

	_, err := eval.HasRoleInOrganization(context.Background(), 7, 3, RoleOwner)
	require.NoError(t, err)
	_, err = eval.HasRoleInOrganization(context.Background(), 7, 3, RoleRadiologist)
	require.NoError(t, err)
	_, err = eval.CanAccessOrganization(context.Background(), 7, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls)
}

func TestCachingEvaluator_InvalidateUser(t *testing.T) {
	inner := &fakeEvaluator{answer: true}
	eval := NewCachingEvaluator(inner, time.Minute, nil, nil)

	_, err := eval.CanAccessOrganization(context.Background(), 7, 3)
	require.NoError(t, err)
	_, err = eval.CanAccessOrganization(context.Background(), 8, 3)
	require.NoError(t, err)

	eval.InvalidateUser(7)

	// User 7 refetches, user 8 still served from cache.
	_, err = eval.CanAccessOrganization(context.Background(), 7, 3)
	require.NoError(t, err)
	_, err = eval.CanAccessOrganization(context.Background(), 8, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, inner.calls)
}
