package voting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/emilythestrangee/featureboard/backend/internal/models"
	"github.com/emilythestrangee/featureboard/backend/internal/testutil"
	"github.com/emilythestrangee/featureboard/backend/internal/voting"
)

func TestRecomputeSelfHealing(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := voting.NewService(db, 0)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.RoleUser)
	a := testutil.CreateUser(t, db, models.RoleUser)
	b := testutil.CreateUser(t, db, models.RoleUser)
	feature := testutil.CreateFeature(t, db, owner, models.StatusApproved)

	_, err := svc.CastVote(ctx, a.ID, feature.ID, models.VoteTypeUpvote)
	require.NoError(t, err)
	_, err = svc.CastVote(ctx, b.ID, feature.ID, models.VoteTypeDownvote)
	require.NoError(t, err)

	// Corrupt the counters behind the aggregator's back.
	require.NoError(t, db.Model(&models.Feature{}).Where("id = ?", feature.ID).
		Updates(map[string]interface{}{
			"upvotes_count":   42,
			"downvotes_count": 17,
			"votes_count":     -3,
		}).Error)

	// Recompute derives from the ledger, not from history.
	var counts voting.VoteCounts
	err = db.Transaction(func(tx *gorm.DB) error {
		var agg voting.Aggregator
		var err error
		counts, err = agg.Recompute(tx, feature.ID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, voting.VoteCounts{Upvotes: 1, Downvotes: 1, Total: 0}, counts)

	assertCountersMatchLedger(t, db, feature.ID)
}

func TestRecomputeIsolatedPerFeature(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := voting.NewService(db, 0)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.RoleUser)
	voter := testutil.CreateUser(t, db, models.RoleUser)
	f1 := testutil.CreateFeature(t, db, owner, models.StatusApproved)
	f2 := testutil.CreateFeature(t, db, owner, models.StatusApproved)

	_, err := svc.CastVote(ctx, voter.ID, f1.ID, models.VoteTypeUpvote)
	require.NoError(t, err)
	_, err = svc.CastVote(ctx, voter.ID, f2.ID, models.VoteTypeDownvote)
	require.NoError(t, err)

	var feat1, feat2 models.Feature
	require.NoError(t, db.First(&feat1, f1.ID).Error)
	require.NoError(t, db.First(&feat2, f2.ID).Error)

	assert.Equal(t, 1, feat1.UpvotesCount)
	assert.Equal(t, 0, feat1.DownvotesCount)
	assert.Equal(t, 0, feat2.UpvotesCount)
	assert.Equal(t, 1, feat2.DownvotesCount)
}
