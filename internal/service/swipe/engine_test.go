package swipe_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/muzz-match/internal/db"
	svcErr "github.com/oggyb/muzz-match/internal/errors"
	"github.com/oggyb/muzz-match/internal/repository"
	"github.com/oggyb/muzz-match/internal/service/match"
	"github.com/oggyb/muzz-match/internal/service/swipe"
	"github.com/oggyb/muzz-match/internal/testutil"
)

type fixture struct {
	db      *gorm.DB
	engine  *swipe.Engine
	matches *match.Registry
}

func setup(t *testing.T, opts ...swipe.Option) fixture {
	t.Helper()
	database := testutil.NewDB(t)
	ids := testutil.NewAllocator(t)
	registry := match.NewRegistry(repository.NewMatchRepository(database, ids), nil)
	engine := swipe.NewEngine(ids, repository.NewSwipeRepository(database), registry, opts...)
	return fixture{db: database, engine: engine, matches: registry}
}

func TestRecordSwipe_SelfSwipeIsValidation(t *testing.T) {
	f := setup(t)
	_, err := f.engine.RecordSwipe(context.Background(), 1, 1, db.ActionLike)
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))
}

func TestRecordSwipe_UnknownAction(t *testing.T) {
	f := setup(t)
	_, err := f.engine.RecordSwipe(context.Background(), 1, 2, "SUPERLIKE")
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))
}

func TestRecordSwipe_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.engine.RecordSwipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)

	_, err = f.engine.RecordSwipe(ctx, 1, 2, db.ActionLike)
	assert.Equal(t, svcErr.KindConflict, svcErr.KindOf(err))
	assert.Equal(t, "already swiped", svcErr.Message(err))
}

func TestRecordSwipe_ChangeOfMindKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.engine.RecordSwipe(ctx, 1, 2, db.ActionDislike)
	require.NoError(t, err)
	_, err = f.engine.RecordSwipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)

	// going back to an action already stored for the pair
	_, err = f.engine.RecordSwipe(ctx, 1, 2, db.ActionDislike)
	assert.Equal(t, svcErr.KindConflict, svcErr.KindOf(err))

	history, err := f.engine.GetSwipeHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, db.ActionDislike, history[0].Action)
	assert.Equal(t, db.ActionLike, history[1].Action)
	assert.Less(t, history[0].ID, history[1].ID)

	targets, err := f.engine.SwipedTargets(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, targets)
}

func TestRecordSwipe_MutualLikeMatchesOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.engine.RecordSwipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)

	res, err = f.engine.RecordSwipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	assert.True(t, res.IsMatch)
	assert.NotZero(t, res.MatchID)

	ab, err := f.matches.GetMatch(ctx, 1, 2)
	require.NoError(t, err)
	ba, err := f.matches.GetMatch(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, res.MatchID, ab.ID)
	assert.Equal(t, ab.ID, ba.ID)

	history, err := f.matches.GetMatchHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(2), history[0].TargetUserID)

	// repeating the like cannot produce a second match
	_, err = f.engine.RecordSwipe(ctx, 2, 1, db.ActionLike)
	assert.Equal(t, svcErr.KindConflict, svcErr.KindOf(err))
}

func TestRecordSwipe_DislikeNeverMatches(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.engine.RecordSwipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)
	res, err := f.engine.RecordSwipe(ctx, 2, 1, db.ActionDislike)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)

	_, err = f.matches.GetMatch(ctx, 1, 2)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
}

func TestRecordSwipe_ReciprocalMindChange(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	// 2 liked then disliked 1: latest reciprocal is DISLIKE
	_, err := f.engine.RecordSwipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	_, err = f.engine.RecordSwipe(ctx, 2, 1, db.ActionDislike)
	require.NoError(t, err)

	res, err := f.engine.RecordSwipe(ctx, 1, 2, db.ActionLike)
	require.NoError(t, err)
	assert.False(t, res.IsMatch)
}

func TestRecordSwipe_ConcurrentMutualLikesCreateOnePair(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	const rounds = 5
	for r := 0; r < rounds; r++ {
		a, b := uint64(100+2*r), uint64(101+2*r)

		var (
			wg      sync.WaitGroup
			results [2]swipe.Result
			errs    [2]error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			results[0], errs[0] = f.engine.RecordSwipe(ctx, a, b, db.ActionLike)
		}()
		go func() {
			defer wg.Done()
			results[1], errs[1] = f.engine.RecordSwipe(ctx, b, a, db.ActionLike)
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		// the later writer always sees the reciprocal like
		require.True(t, results[0].IsMatch || results[1].IsMatch)

		var rows []db.Match
		require.NoError(t, f.db.Where("user_id IN ?", []uint64{a, b}).Find(&rows).Error)
		require.Len(t, rows, 2)
		assert.Equal(t, rows[0].ID, rows[1].ID)
		for _, res := range results {
			if res.IsMatch {
				assert.Equal(t, rows[0].ID, res.MatchID)
			}
		}
	}
}

func TestRecordSwipe_ConcurrentDuplicatesOneWins(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.RecordSwipe(ctx, 1, 2, db.ActionLike)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, &svcErr.Error{Kind: svcErr.KindConflict}):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)

	var count int64
	require.NoError(t, f.db.Model(&db.Swipe{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCountLikedYou_CacheFirst(t *testing.T) {
	ctx := context.Background()
	cache, mr := testutil.NewCache(t)
	f := setup(t, swipe.WithCache(cache))

	_, err := f.engine.RecordSwipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)
	_, err = f.engine.RecordSwipe(ctx, 3, 1, db.ActionLike)
	require.NoError(t, err)

	n, err := f.engine.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	key := cache.KeyForLikeCount(1)
	cached, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "2", cached)
	assert.True(t, mr.TTL(key) > 0)

	// a stale cached value wins until invalidated
	require.NoError(t, mr.Set(key, "42"))
	n, err = f.engine.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	// a dislike from the recipient invalidates and the DB count drops
	_, err = f.engine.RecordSwipe(ctx, 1, 3, db.ActionDislike)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	n, err = f.engine.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCountLikedYou_CacheDownFallsBackToDB(t *testing.T) {
	ctx := context.Background()
	cache, mr := testutil.NewCache(t)
	f := setup(t, swipe.WithCache(cache))

	_, err := f.engine.RecordSwipe(ctx, 2, 1, db.ActionLike)
	require.NoError(t, err)

	mr.Close()

	n, err := f.engine.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// countHookStore runs afterCount once, after the likers query finished but
// before CountLikedYou gets the result back.
type countHookStore struct {
	*repository.SwipeRepository
	afterCount func()
}

func (s *countHookStore) CountLikers(ctx context.Context, recipientID uint64) (int64, error) {
	n, err := s.SwipeRepository.CountLikers(ctx, recipientID)
	if hook := s.afterCount; hook != nil {
		s.afterCount = nil
		hook()
	}
	return n, err
}

func TestCountLikedYou_SwipeDuringReadIsNotCachedStale(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewDB(t)
	ids := testutil.NewAllocator(t)
	cache, mr := testutil.NewCache(t)
	store := &countHookStore{SwipeRepository: repository.NewSwipeRepository(database)}
	registry := match.NewRegistry(repository.NewMatchRepository(database, ids), nil)
	engine := swipe.NewEngine(ids, store, registry, swipe.WithCache(cache))

	store.afterCount = func() {
		_, err := engine.RecordSwipe(ctx, 7, 1, db.ActionLike)
		require.NoError(t, err)
	}

	// this read raced the like and may report the old value
	n, err := engine.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.False(t, mr.Exists(cache.KeyForLikeCount(1)))

	n, err = engine.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cached, err := mr.Get(cache.KeyForLikeCount(1))
	require.NoError(t, err)
	assert.Equal(t, "1", cached)
}
