package models

import "time"

// FeatureStatus governs a feature's lifecycle and its vote eligibility.
type FeatureStatus string

const (
	StatusPending     FeatureStatus = "pending"
	StatusApproved    FeatureStatus = "approved"
	StatusRejected    FeatureStatus = "rejected"
	StatusImplemented FeatureStatus = "implemented"
	StatusArchived    FeatureStatus = "archived"
)

// statusTransitions is the allowed state machine. Archived is terminal.
var statusTransitions = map[FeatureStatus][]FeatureStatus{
	StatusPending:     {StatusApproved, StatusRejected, StatusArchived},
	StatusApproved:    {StatusImplemented, StatusArchived, StatusPending},
	StatusRejected:    {StatusPending, StatusArchived},
	StatusImplemented: {StatusArchived},
	StatusArchived:    {},
}

func (s FeatureStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s FeatureStatus) CanTransitionTo(next FeatureStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Feature struct {
	ID          int           `gorm:"primaryKey" json:"id"`
	Title       string        `gorm:"not null" json:"title"`
	Body        string        `json:"body,omitempty"`
	OwnerUserID int           `gorm:"index" json:"owner_user_id"`
	Owner       User          `gorm:"foreignKey:OwnerUserID" json:"owner"`
	Status      FeatureStatus `gorm:"type:varchar(20);default:pending" json:"status"`

	// Denormalized counters. Written only by the vote aggregator; every
	// other writer goes through it.
	VotesCount     int `gorm:"default:0" json:"votes_count"`
	UpvotesCount   int `gorm:"default:0" json:"upvotes_count"`
	DownvotesCount int `gorm:"default:0" json:"downvotes_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateFeatureRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

type UpdateFeatureStatusRequest struct {
	Status FeatureStatus `json:"status" binding:"required"`
}
