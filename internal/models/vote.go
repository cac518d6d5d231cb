package models

import "time"

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteTypeUpvote   VoteType = "upvote"
	VoteTypeDownvote VoteType = "downvote"
)

func (t VoteType) Valid() bool {
	return t == VoteTypeUpvote || t == VoteTypeDownvote
}

// Vote model - the ledger of individual user votes on features.
// The composite unique index enforces one vote per user per feature.
type Vote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_votes_user_feature" json:"user_id"`
	FeatureID int       `gorm:"not null;uniqueIndex:idx_votes_user_feature" json:"feature_id"`
	VoteType  VoteType  `gorm:"type:varchar(10);not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
}
