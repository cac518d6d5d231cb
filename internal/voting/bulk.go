package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emilythestrangee/featureboard/backend/internal/models"
)

// Bulk operation actions.
const (
	BulkCreate = "create"
	BulkUpdate = "update"
	BulkDelete = "delete"
)

// MaxBulkOperations caps a single batch.
const MaxBulkOperations = 100

var ErrTooManyOperations = fmt.Errorf("a batch may contain at most %d operations", MaxBulkOperations)

// BulkOperation is one entry in an admin batch. Create needs feature_id,
// user_id and vote_type; update needs vote_id and vote_type; delete needs
// vote_id.
type BulkOperation struct {
	Action    string          `json:"action" binding:"required,oneof=create update delete"`
	FeatureID int             `json:"feature_id,omitempty"`
	VoteID    int             `json:"vote_id,omitempty"`
	UserID    int             `json:"user_id,omitempty"`
	VoteType  models.VoteType `json:"vote_type,omitempty"`
}

// BulkResult is the recorded outcome of one operation.
type BulkResult struct {
	Index   int    `json:"index"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type BulkSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type BulkOutcome struct {
	BatchID string       `json:"batch_id"`
	Results []BulkResult `json:"results"`
	Summary BulkSummary  `json:"summary"`
}

// BulkApply runs an ordered batch of vote operations in one transaction.
// Each operation gets a savepoint, so an item failure rolls back only that
// item and is recorded while the batch continues. Counters for every touched
// feature are recomputed once at the end of the batch. Only infrastructure
// failures abort and roll back the batch as a whole.
func (s *Service) BulkApply(ctx context.Context, role models.Role, ops []BulkOperation) (*BulkOutcome, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if len(ops) > MaxBulkOperations {
		return nil, ErrTooManyOperations
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome := &BulkOutcome{
		BatchID: uuid.NewString(),
		Results: make([]BulkResult, 0, len(ops)),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		touched := make(map[int]struct{})

		for i, op := range ops {
			sp := fmt.Sprintf("bulk_op_%d", i)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}

			featureID, err := s.applyBulkOp(tx, op)
			if err != nil {
				if !isOperationError(err) {
					// Infrastructure failure: abort the whole batch.
					return err
				}
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				outcome.Results = append(outcome.Results, BulkResult{
					Index:   i,
					Action:  op.Action,
					Success: false,
					Error:   err.Error(),
				})
				continue
			}

			touched[featureID] = struct{}{}
			outcome.Results = append(outcome.Results, BulkResult{
				Index:   i,
				Action:  op.Action,
				Success: true,
			})
		}

		for featureID := range touched {
			if _, err := s.agg.Recompute(tx, featureID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome.Summary.Total = len(outcome.Results)
	for _, r := range outcome.Results {
		if r.Success {
			outcome.Summary.Succeeded++
		} else {
			outcome.Summary.Failed++
		}
	}
	return outcome, nil
}

// applyBulkOp mutates the ledger for one operation and reports which
// feature it touched. Counter recompute is deferred to the end of the batch.
func (s *Service) applyBulkOp(tx *gorm.DB, op BulkOperation) (int, error) {
	switch op.Action {
	case BulkCreate:
		if !op.VoteType.Valid() {
			return 0, ErrInvalidVoteType
		}
		feature, err := lockFeature(tx, op.FeatureID)
		if err != nil {
			return 0, err
		}
		if feature.Status == models.StatusArchived {
			return 0, ErrArchived
		}
		if feature.OwnerUserID == op.UserID {
			return 0, ErrSelfVote
		}

		vote := models.Vote{UserID: op.UserID, FeatureID: op.FeatureID, VoteType: op.VoteType}
		if err := tx.Create(&vote).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return 0, ErrDuplicateVote
			}
			return 0, err
		}
		return op.FeatureID, nil

	case BulkUpdate:
		if !op.VoteType.Valid() {
			return 0, ErrInvalidVoteType
		}
		vote, feature, err := lockAnyVoteFeature(tx, op.VoteID)
		if err != nil {
			return 0, err
		}
		if feature.Status == models.StatusArchived {
			return 0, ErrArchived
		}
		if vote.VoteType == op.VoteType {
			return 0, ErrSameValue
		}
		if err := tx.Model(vote).Update("vote_type", op.VoteType).Error; err != nil {
			return 0, err
		}
		return vote.FeatureID, nil

	case BulkDelete:
		vote, _, err := lockAnyVoteFeature(tx, op.VoteID)
		if err != nil {
			return 0, err
		}
		if err := tx.Delete(vote).Error; err != nil {
			return 0, err
		}
		return vote.FeatureID, nil

	default:
		return 0, fmt.Errorf("unknown action %q", op.Action)
	}
}

// lockAnyVoteFeature is the admin variant of lockVoteFeature: it resolves a
// vote by id alone, keeping the feature-before-vote lock order.
func lockAnyVoteFeature(tx *gorm.DB, voteID int) (*models.Vote, *models.Feature, error) {
	var probe models.Vote
	err := tx.First(&probe, voteID).Error
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
	err = tx.First(&vote, voteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrVoteNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &vote, feature, nil
}

// isOperationError reports whether err is a per-item business failure that
// the batch records and survives, as opposed to a storage failure.
func isOperationError(err error) bool {
	for _, known := range []error{
		ErrFeatureNotFound,
		ErrVoteNotFound,
		ErrInvalidVoteType,
		ErrArchived,
		ErrSelfVote,
		ErrSameValue,
		ErrDuplicateVote,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return strings.HasPrefix(err.Error(), "unknown action")
}
