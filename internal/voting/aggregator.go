package voting

import (
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/featureboard/backend/internal/models"
)

// VoteCounts is the denormalized counter set for one feature.
type VoteCounts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Total     int `json:"total"`
}

// Aggregator is the sole writer of the feature counter columns. It always
// recomputes from the vote ledger rather than applying deltas, so counters
// equal the ledger aggregate after every call regardless of history.
type Aggregator struct{}

// Recompute counts the ledger rows for featureID and writes all three
// counters back to the feature row. It must run inside the same transaction
// as the ledger mutation that triggered it.
func (Aggregator) Recompute(tx *gorm.DB, featureID int) (VoteCounts, error) {
	var up, down int64
	if err := tx.Model(&models.Vote{}).
		Where("feature_id = ? AND vote_type = ?", featureID, models.VoteTypeUpvote).
		Count(&up).Error; err != nil {
		return VoteCounts{}, err
	}
	if err := tx.Model(&models.Vote{}).
		Where("feature_id = ? AND vote_type = ?", featureID, models.VoteTypeDownvote).
		Count(&down).Error; err != nil {
		return VoteCounts{}, err
	}

	counts := VoteCounts{
		Upvotes:   int(up),
		Downvotes: int(down),
		Total:     int(up - down),
	}

	err := tx.Model(&models.Feature{}).
		Where("id = ?", featureID).
		Updates(map[string]interface{}{
			"upvotes_count":   counts.Upvotes,
			"downvotes_count": counts.Downvotes,
			"votes_count":     counts.Total,
			"updated_at":      time.Now().UTC(),
		}).Error
	if err != nil {
		return VoteCounts{}, err
	}

	return counts, nil
}
