package voting

import "errors"

// Sentinel errors for the voting service. Handlers map these to HTTP
// status codes; anything else is a storage failure.
var (
	ErrFeatureNotFound = errors.New("feature not found")
	ErrVoteNotFound    = errors.New("vote not found")
	ErrInvalidVoteType = errors.New("vote_type must be upvote or downvote")
	ErrArchived        = errors.New("cannot vote on archived features")
	ErrSelfVote        = errors.New("cannot vote on your own feature")
	ErrSameValue       = errors.New("vote is already set to this value")
	ErrForbidden       = errors.New("administrator role required")
	ErrDuplicateVote   = errors.New("user already has a vote on this feature")

	// ErrConflict is returned when a uniqueness race on
	// (user_id, feature_id) could not be recovered by a single replay.
	ErrConflict = errors.New("conflicting vote write, please retry")
)
