package match_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/app/apptest"
	"github.com/oggyb/matchchat/internal/db"
	svcErr "github.com/oggyb/matchchat/internal/errors"
	"github.com/oggyb/matchchat/internal/service/match"
)

// setupService wires a match service over the seeded fixture
// (alice=1, bob=2, carol=3, no likes yet).
func setupService(t *testing.T) (*match.Service, *app.AppContext, *miniredis.Miniredis) {
	t.Helper()
	appCtx, mr := apptest.New(t)
	return match.NewService(appCtx), appCtx, mr
}

func countRows(t *testing.T, appCtx *app.AppContext, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, appCtx.DB.Model(model).Count(&n).Error)
	return n
}

func matchedIDs(t *testing.T, svc *match.Service, userID uint64) []uint64 {
	t.Helper()
	matches, err := svc.GetMatches(context.Background(), userID)
	require.NoError(t, err)
	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.UserID)
	}
	return ids
}

func TestMutualLikeEitherOrder(t *testing.T) {
	for _, order := range [][2]uint64{{1, 2}, {2, 1}} {
		t.Run("", func(t *testing.T) {
			ctx := context.Background()
			svc, appCtx, _ := setupService(t)
			first, second := order[0], order[1]

			res, err := svc.Like(ctx, first, second)
			require.NoError(t, err)
			assert.False(t, res.Matched)

			res, err = svc.Like(ctx, second, first)
			require.NoError(t, err)
			assert.True(t, res.Matched)

			// retried second like
			_, err = svc.Like(ctx, second, first)
			assert.Equal(t, svcErr.KindAlreadyLiked, svcErr.KindOf(err))

			assert.Equal(t, []uint64{2}, matchedIDs(t, svc, 1))
			assert.Equal(t, []uint64{1}, matchedIDs(t, svc, 2))
			assert.Equal(t, int64(2), countRows(t, appCtx, &db.Match{}))
			assert.Equal(t, int64(2), countRows(t, appCtx, &db.Like{}))
			assert.Equal(t, float64(1), testutil.ToFloat64(appCtx.Metrics.MatchesFormed))
		})
	}
}

func TestSelfLikeAndDislikeFail(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 1)
	assert.Equal(t, svcErr.KindInvalidOperation, svcErr.KindOf(err))
	assert.EqualError(t, err, "You cannot like yourself.")

	err = svc.Dislike(ctx, 1, 1)
	assert.Equal(t, svcErr.KindInvalidOperation, svcErr.KindOf(err))

	assert.Zero(t, countRows(t, appCtx, &db.Like{}))
	assert.Zero(t, countRows(t, appCtx, &db.Dislike{}))
	assert.Zero(t, countRows(t, appCtx, &db.Match{}))
}

func TestMissingProfile(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 404)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
	err = svc.Dislike(ctx, 404, 1)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
	_, err = svc.GetMatches(ctx, 404)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))

	assert.Zero(t, countRows(t, appCtx, &db.Like{}))
}

func TestDoubleDislike(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	require.NoError(t, svc.Dislike(ctx, 1, 3))
	err := svc.Dislike(ctx, 1, 3)
	assert.Equal(t, svcErr.KindAlreadyDisliked, svcErr.KindOf(err))
	assert.EqualError(t, err, "Already disliked this user.")
	assert.Equal(t, int64(1), countRows(t, appCtx, &db.Dislike{}))
}

func TestDislikeLeavesLikesAndMatches(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	_, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	// likes and dislikes are not exclusive
	require.NoError(t, svc.Dislike(ctx, 1, 2))
	assert.Equal(t, []uint64{2}, matchedIDs(t, svc, 1))

	ok, err := svc.IsMatched(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConcurrentMutualLikes(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, _ := setupService(t)

	var wg sync.WaitGroup
	results := make([]match.LikeResult, 2)
	errs := make([]error, 2)
	for i, pair := range [][2]uint64{{1, 2}, {2, 1}} {
		wg.Add(1)
		go func(i int, a, b uint64) {
			defer wg.Done()
			results[i], errs[i] = svc.Like(ctx, a, b)
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	// exactly one of the two likes completes the match
	assert.NotEqual(t, results[0].Matched, results[1].Matched)
	assert.Equal(t, int64(2), countRows(t, appCtx, &db.Match{}))
	assert.Equal(t, []uint64{2}, matchedIDs(t, svc, 1))
	assert.Equal(t, []uint64{1}, matchedIDs(t, svc, 2))
}

func TestIsMatchedUsesCache(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, mr := setupService(t)

	ok, err := svc.IsMatched(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(appCtx.RedisCache.KeyForMatches(1)))

	_, err = svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	members, err := mr.SMembers(appCtx.RedisCache.KeyForMatches(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, members)

	// cache gone → DB answers and refills it
	mr.FlushAll()
	ok, err = svc.IsMatched(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists(appCtx.RedisCache.KeyForMatches(2)))

	ok, err = svc.IsMatched(ctx, 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLikedYou(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	// bob and carol like alice; alice dislikes carol
	_, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	_, err = svc.Like(ctx, 3, 1)
	require.NoError(t, err)

	n, err := svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, svc.Dislike(ctx, 1, 3))

	likers, next, err := svc.ListLikedYou(ctx, 1, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, likers, 1)
	assert.Equal(t, uint64(2), likers[0].UserID)

	// served from cache, adjusted by the dislike
	n, err = svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// alice likes bob back → no longer pending
	_, err = svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	n, err = svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, _, err = svc.ListLikedYou(ctx, 1, ptr("%%%"), 10)
	assert.Equal(t, svcErr.KindInvalidArgument, svcErr.KindOf(err))
}

func TestLikedYouCountAfterDislikedLikerMatches(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupService(t)

	// alice dislikes bob, then carol likes alice
	require.NoError(t, svc.Dislike(ctx, 1, 2))
	_, err := svc.Like(ctx, 3, 1)
	require.NoError(t, err)

	n, err := svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// bob's like on alice was never pending, so the match must not lower it
	_, err = svc.Like(ctx, 2, 1)
	require.NoError(t, err)
	res, err := svc.Like(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Matched)

	likers, _, err := svc.ListLikedYou(ctx, 1, nil, 10)
	require.NoError(t, err)
	n, err = svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(len(likers)), n)
	assert.Equal(t, int64(1), n)
}

func TestCountLikedYouCacheFirst(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, mr := setupService(t)

	_, err := svc.Like(ctx, 2, 1)
	require.NoError(t, err)

	// First call → DB
	n, err := svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, mr.Exists(appCtx.RedisCache.KeyForLikeCount(1)))

	// Second call → cache
	require.NoError(t, mr.Set(appCtx.RedisCache.KeyForLikeCount(1), "7"))
	n, err = svc.CountLikedYou(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func ptr(s string) *string { return &s }
