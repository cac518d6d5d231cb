package voting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/featureboard/backend/internal/models"
	"github.com/emilythestrangee/featureboard/backend/internal/testutil"
	"github.com/emilythestrangee/featureboard/backend/internal/voting"
)

func TestBulkForbiddenForNonAdmin(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := voting.NewService(db, 0)

	_, err := svc.BulkApply(context.Background(), models.RoleUser, []voting.BulkOperation{
		{Action: voting.BulkDelete, VoteID: 1},
	})
	assert.ErrorIs(t, err, voting.ErrForbidden)
}

func TestBulkTooManyOperations(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := voting.NewService(db, 0)

	ops := make([]voting.BulkOperation, voting.MaxBulkOperations+1)
	for i := range ops {
		ops[i] = voting.BulkOperation{Action: voting.BulkDelete, VoteID: i + 1}
	}
	_, err := svc.BulkApply(context.Background(), models.RoleAdmin, ops)
	assert.ErrorIs(t, err, voting.ErrTooManyOperations)
}

func TestBulkPartialFailure(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := voting.NewService(db, 0)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.RoleUser)
	a := testutil.CreateUser(t, db, models.RoleUser)
	b := testutil.CreateUser(t, db, models.RoleUser)
	feature := testutil.CreateFeature(t, db, owner, models.StatusApproved)

	// Op 2 references a vote that does not exist; 1 and 3 are valid.
	ops := []voting.BulkOperation{
		{Action: voting.BulkCreate, FeatureID: feature.ID, UserID: a.ID, VoteType: models.VoteTypeUpvote},
		{Action: voting.BulkUpdate, VoteID: 999999, VoteType: models.VoteTypeDownvote},
		{Action: voting.BulkCreate, FeatureID: feature.ID, UserID: b.ID, VoteType: models.VoteTypeDownvote},
	}

	outcome, err := svc.BulkApply(ctx, models.RoleAdmin, ops)
	require.NoError(t, err)

	require.Len(t, outcome.Results, 3)
	assert.True(t, outcome.Results[0].Success)
	assert.False(t, outcome.Results[1].Success)
	assert.Contains(t, outcome.Results[1].Error, "not found")
	assert.True(t, outcome.Results[2].Success)

	assert.Equal(t, voting.BulkSummary{Total: 3, Succeeded: 2, Failed: 1}, outcome.Summary)
	assert.NotEmpty(t, outcome.BatchID)

	// Both surviving ledger rows landed and counters were recomputed at
	// batch end.
	var feat models.Feature
	require.NoError(t, db.First(&feat, feature.ID).Error)
	assert.Equal(t, 1, feat.UpvotesCount)
	assert.Equal(t, 1, feat.DownvotesCount)
	assert.Equal(t, 0, feat.VotesCount)
	assertCountersMatchLedger(t, db, feature.ID)
}

func TestBulkBusinessRulesPerItem(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := voting.NewService(db, 0)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.RoleUser)
	voter := testutil.CreateUser(t, db, models.RoleUser)
	open := testutil.CreateFeature(t, db, owner, models.StatusApproved)
	archived := testutil.CreateFeature(t, db, owner, models.StatusArchived)

	_, err := svc.CastVote(ctx, voter.ID, open.ID, models.VoteTypeUpvote)
	require.NoError(t, err)

	ops := []voting.BulkOperation{
		// Self-vote.
		{Action: voting.BulkCreate, FeatureID: open.ID, UserID: owner.ID, VoteType: models.VoteTypeUpvote},
		// Archived feature.
		{Action: voting.BulkCreate, FeatureID: archived.ID, UserID: voter.ID, VoteType: models.VoteTypeUpvote},
		// Duplicate of voter's existing vote row.
		{Action: voting.BulkCreate, FeatureID: open.ID, UserID: voter.ID, VoteType: models.VoteTypeDownvote},
		// Bad vote type.
		{Action: voting.BulkCreate, FeatureID: open.ID, UserID: voter.ID, VoteType: models.VoteType("sideways")},
	}

	outcome, err := svc.BulkApply(ctx, models.RoleAdmin, ops)
	require.NoError(t, err)

	require.Len(t, outcome.Results, 4)
	for i, r := range outcome.Results {
		assert.Falsef(t, r.Success, "op %d should fail", i)
	}
	assert.Equal(t, voting.BulkSummary{Total: 4, Succeeded: 0, Failed: 4}, outcome.Summary)

	// Nothing changed.
	assertCountersMatchLedger(t, db, open.ID)
	assertCountersMatchLedger(t, db, archived.ID)
}

func TestBulkRecomputesEachTouchedFeature(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := voting.NewService(db, 0)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.RoleUser)
	a := testutil.CreateUser(t, db, models.RoleUser)
	f1 := testutil.CreateFeature(t, db, owner, models.StatusApproved)
	f2 := testutil.CreateFeature(t, db, owner, models.StatusApproved)

	_, err := svc.CastVote(ctx, a.ID, f1.ID, models.VoteTypeUpvote)
	require.NoError(t, err)

	var existing models.Vote
	require.NoError(t, db.Where("user_id = ? AND feature_id = ?", a.ID, f1.ID).First(&existing).Error)

	ops := []voting.BulkOperation{
		{Action: voting.BulkUpdate, VoteID: existing.ID, VoteType: models.VoteTypeDownvote},
		{Action: voting.BulkCreate, FeatureID: f2.ID, UserID: a.ID, VoteType: models.VoteTypeUpvote},
	}

	outcome, err := svc.BulkApply(ctx, models.RoleAdmin, ops)
	require.NoError(t, err)
	assert.Equal(t, voting.BulkSummary{Total: 2, Succeeded: 2, Failed: 0}, outcome.Summary)

	assertCountersMatchLedger(t, db, f1.ID)
	assertCountersMatchLedger(t, db, f2.ID)

	var feat1, feat2 models.Feature
	require.NoError(t, db.First(&feat1, f1.ID).Error)
	require.NoError(t, db.First(&feat2, f2.ID).Error)
	assert.Equal(t, 1, feat1.DownvotesCount)
	assert.Equal(t, 0, feat1.UpvotesCount)
	assert.Equal(t, 1, feat2.UpvotesCount)
}

func TestBulkDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := voting.NewService(db, 0)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, models.RoleUser)
	voter := testutil.CreateUser(t, db, models.RoleUser)
	feature := testutil.CreateFeature(t, db, owner, models.StatusApproved)

	_, err := svc.CastVote(ctx, voter.ID, feature.ID, models.VoteTypeUpvote)
	require.NoError(t, err)

	var vote models.Vote
	require.NoError(t, db.Where("user_id = ? AND feature_id = ?", voter.ID, feature.ID).First(&vote).Error)

	outcome, err := svc.BulkApply(ctx, models.RoleAdmin, []voting.BulkOperation{
		{Action: voting.BulkDelete, VoteID: vote.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, voting.BulkSummary{Total: 1, Succeeded: 1, Failed: 0}, outcome.Summary)

	var n int64
	require.NoError(t, db.Model(&models.Vote{}).Where("id = ?", vote.ID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
	assertCountersMatchLedger(t, db, feature.ID)
}
