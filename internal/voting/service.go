package voting

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/featureboard/backend/internal/models"
)

// Actions reported by CastVote.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionRemoved = "removed"
)

const DefaultTimeout = 8 * time.Second

// Service is the single entry point for vote mutations. Every mutation runs
// inside one transaction that locks the feature row, changes the ledger, and
// recomputes the feature counters, so the counters always equal the ledger
// aggregate when the transaction commits.
type Service struct {
	db      *gorm.DB
	agg     Aggregator
	timeout time.Duration
}

func NewService(db *gorm.DB, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{db: db, timeout: timeout}
}

// CastResult describes the outcome of a CastVote call. VoteType is nil when
// the vote was toggled off.
type CastResult struct {
	Action    string           `json:"action"`
	VoteType  *models.VoteType `json:"vote_type"`
	FeatureID int              `json:"feature_id"`
	Counts    VoteCounts       `json:"vote_counts"`
}

// CastVote records userID's vote on featureID with toggle semantics:
// no existing vote creates one, the same type removes it, a different type
// flips it in place. A lost insert race against the unique index is replayed
// once against fresh state before giving up.
func (s *Service) CastVote(ctx context.Context, userID, featureID int, voteType models.VoteType) (*CastResult, error) {
	if !voteType.Valid() {
		return nil, ErrInvalidVoteType
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.castOnce(ctx, userID, featureID, voteType)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		result, err = s.castOnce(ctx, userID, featureID, voteType)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
	}
	return result, err
}

func (s *Service) castOnce(ctx context.Context, userID, featureID int, voteType models.VoteType) (*CastResult, error) {
	var result *CastResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		feature, err := lockFeature(tx, featureID)
		if err != nil {
			return err
		}
		if feature.Status == models.StatusArchived {
			return ErrArchived
		}
		if feature.OwnerUserID == userID {
			return ErrSelfVote
		}

		action := ActionCreated
		resultType := &voteType

		var existing models.Vote
		err = tx.Where("user_id = ? AND feature_id = ?", userID, featureID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.Vote{UserID: userID, FeatureID: featureID, VoteType: voteType}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case existing.VoteType == voteType:
			// Toggle-off: same type again removes the vote.
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			action = ActionRemoved
			resultType = nil
		default:
			if err := tx.Model(&existing).Update("vote_type", voteType).Error; err != nil {
				return err
			}
			action = ActionUpdated
		}

		counts, err := s.agg.Recompute(tx, featureID)
		if err != nil {
			return err
		}

		result = &CastResult{
			Action:    action,
			VoteType:  resultType,
			FeatureID: featureID,
			Counts:    counts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateVote changes the type of an existing vote owned by userID. An
// ownership mismatch is reported as not-found so callers cannot probe for
// other users' vote ids.
func (s *Service) UpdateVote(ctx context.Context, voteID, userID int, newType models.VoteType) (*models.Vote, error) {
	if !newType.Valid() {
		return nil, ErrInvalidVoteType
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var updated models.Vote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote, feature, err := lockVoteFeature(tx, voteID, userID)
		if err != nil {
			return err
		}
		if feature.Status == models.StatusArchived {
			return ErrArchived
		}
		if vote.VoteType == newType {
			return ErrSameValue
		}

		if err := tx.Model(vote).Update("vote_type", newType).Error; err != nil {
			return err
		}
		if _, err := s.agg.Recompute(tx, vote.FeatureID); err != nil {
			return err
		}
		return tx.Preload("User").First(&updated, vote.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// RemoveVote deletes a vote owned by userID.
func (s *Service) RemoveVote(ctx context.Context, voteID, userID int) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		vote, feature, err := lockVoteFeature(tx, voteID, userID)
		if err != nil {
			return err
		}
		if feature.Status == models.StatusArchived {
			return ErrArchived
		}

		if err := tx.Delete(vote).Error; err != nil {
			return err
		}
		_, err = s.agg.Recompute(tx, vote.FeatureID)
		return err
	})
}

// lockFeature takes a FOR UPDATE lock on the feature row. The lock
// serializes all vote mutations for one feature while leaving other
// features untouched.
func lockFeature(tx *gorm.DB, featureID int) (*models.Feature, error) {
	var feature models.Feature
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&feature, featureID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeatureNotFound
	}
	if err != nil {
		return nil, err
	}
	return &feature, nil
}

// lockVoteFeature resolves a vote scoped to its owner, then locks the
// feature row and re-reads the vote under that lock. Features are always
// locked before votes so mutation paths cannot deadlock each other.
func lockVoteFeature(tx *gorm.DB, voteID, userID int) (*models.Vote, *models.Feature, error) {
	var probe models.Vote
	err := tx.Where("id = ? AND user_id = ?", voteID, userID).First(&probe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrVoteNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	feature, err := lockFeature(tx, probe.FeatureID)
	if err != nil {
		return nil, nil, err
	}

	var vote models.Vote
	err = tx.Where("id = ? AND user_id = ?", voteID, userID).First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Deleted between the probe and the lock.
		return nil, nil, ErrVoteNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &vote, feature, nil
}

// ListFilters narrows ListVotes. Nil fields are ignored.
type ListFilters struct {
	UserID    *int
	FeatureID *int
	VoteType  *models.VoteType
	Page      int
	Limit     int
}

func (f *ListFilters) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

// ListVotes returns a newest-first page of votes matching the filters plus
// the total match count for pagination.
func (s *Service) ListVotes(ctx context.Context, filters ListFilters) ([]models.Vote, int64, error) {
	filters.normalize()

	q := s.db.WithContext(ctx).Model(&models.Vote{})
	if filters.UserID != nil {
		q = q.Where("user_id = ?", *filters.UserID)
	}
	if filters.FeatureID != nil {
		q = q.Where("feature_id = ?", *filters.FeatureID)
	}
	if filters.VoteType != nil {
		q = q.Where("vote_type = ?", *filters.VoteType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var votes []models.Vote
	err := q.Preload("User").
		Order("created_at desc").
		Offset((filters.Page - 1) * filters.Limit).
		Limit(filters.Limit).
		Find(&votes).Error
	if err != nil {
		return nil, 0, err
	}
	if votes == nil {
		votes = []models.Vote{}
	}
	return votes, total, nil
}

// GetUserFeatureVote is a point lookup of one user's vote on one feature.
func (s *Service) GetUserFeatureVote(ctx context.Context, userID, featureID int) (*models.Vote, error) {
	var vote models.Vote
	err := s.db.WithContext(ctx).Preload("User").
		Where("user_id = ? AND feature_id = ?", userID, featureID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// UserVoteStats summarizes one user's voting. Unlike feature counters,
// Total here is the number of votes cast, not a net score.
type UserVoteStats struct {
	Total     int `json:"total"`
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// UserStats counts one user's votes across all features.
func (s *Service) UserStats(ctx context.Context, userID int) (UserVoteStats, error) {
	var up, down int64
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("user_id = ? AND vote_type = ?", userID, models.VoteTypeUpvote).
		Count(&up).Error
	if err != nil {
		return UserVoteStats{}, err
	}
	err = s.db.WithContext(ctx).Model(&models.Vote{}).
		Where("user_id = ? AND vote_type = ?", userID, models.VoteTypeDownvote).
		Count(&down).Error
	if err != nil {
		return UserVoteStats{}, err
	}
	return UserVoteStats{Total: int(up + down), Upvotes: int(up), Downvotes: int(down)}, nil
}

// DailyActivity is one day of voting on a feature.
type DailyActivity struct {
	Day   string `json:"day"`
	Votes int    `json:"votes"`
}

// FeatureActivity returns the per-day vote volume for the last seven days.
func (s *Service) FeatureActivity(ctx context.Context, featureID int) ([]DailyActivity, error) {
	since := time.Now().UTC().AddDate(0, 0, -7)

	var rows []DailyActivity
	err := s.db.WithContext(ctx).Model(&models.Vote{}).
		Select("to_char(created_at, 'YYYY-MM-DD') AS day, count(*) AS votes").
		Where("feature_id = ? AND created_at >= ?", featureID, since).
		Group("day").
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []DailyActivity{}
	}
	return rows, nil
}

// GetFeature loads a feature with its owner for read endpoints.
func (s *Service) GetFeature(ctx context.Context, featureID int) (*models.Feature, error) {
	var feature models.Feature
	err := s.db.WithContext(ctx).Preload("Owner").First(&feature, featureID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFeatureNotFound
	}
	if err != nil {
		return nil, err
	}
	return &feature, nil
}
